// Package utils holds small message-construction helpers used by handlers.
package utils

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Helpers is the handler-facing helper contract.
type Helpers interface {
	CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error)
	CreateNewMessage(payload any, topic string) (*message.Message, error)
}

// MessageHelpers is the production implementation of Helpers.
type MessageHelpers struct{}

var _ Helpers = MessageHelpers{}

func NewHelpers() MessageHelpers {
	return MessageHelpers{}
}

// CreateResultMessage marshals payload into a new message bound for topic,
// carrying over the correlation ID from the originating message.
func (MessageHelpers) CreateResultMessage(original *message.Message, payload any, topic string) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for topic %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)

	correlationID := ""
	if original != nil {
		correlationID = original.Metadata.Get(middleware.CorrelationIDMetadataKey)
	}
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	msg.Metadata.Set(middleware.CorrelationIDMetadataKey, correlationID)

	return msg, nil
}

// CreateNewMessage marshals payload into a fresh message with a new
// correlation ID.
func (h MessageHelpers) CreateNewMessage(payload any, topic string) (*message.Message, error) {
	return h.CreateResultMessage(nil, payload, topic)
}
