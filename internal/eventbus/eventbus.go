// Package eventbus wraps watermill publishers/subscribers behind a small
// interface so modules can publish domain events without caring about the
// transport. Production uses NATS JetStream; tests use the in-process bus.
package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventBus is the publish/subscribe contract used by all modules.
type EventBus interface {
	Publish(topic string, messages ...*message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}
