package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// InProcessEventBus is a gochannel-backed bus for unit tests and single-node
// development runs.
type InProcessEventBus struct {
	pubsub *gochannel.GoChannel
}

var _ EventBus = (*InProcessEventBus)(nil)

func NewInProcessEventBus(logger watermill.LoggerAdapter) *InProcessEventBus {
	return &InProcessEventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
	}
}

func (b *InProcessEventBus) Publish(topic string, messages ...*message.Message) error {
	return b.pubsub.Publish(topic, messages...)
}

func (b *InProcessEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *InProcessEventBus) Close() error {
	return b.pubsub.Close()
}
