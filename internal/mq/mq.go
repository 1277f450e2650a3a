// Package mq publishes and consumes post events over a pluggable broker.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/types"
)

// ErrDisabled is returned by New when no broker is configured.
var ErrDisabled = errors.New("message queue is not configured")

const attrEventType = "event_type"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ binds a backend to the channel carrying post events.
type MQ struct {
	backend Backend
	channel string
}

// New connects to the broker selected by cfg.Backend.
func New(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, ErrDisabled
	case config.MQBackendRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case config.MQBackendPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}
	return NewWithBackend(backend, cfg.Channel), nil
}

func NewWithBackend(backend Backend, channel string) *MQ {
	return &MQ{backend: backend, channel: channel}
}

// PublishPostEvent encodes the event as JSON and sends it to the events channel.
func (m *MQ) PublishPostEvent(ctx context.Context, event types.PostEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode post event: %w", err)
	}
	if _, err := m.backend.Publish(ctx, m.channel, data, map[string]string{
		attrEventType: string(event.Type),
	}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// SubscribePostEvents blocks, decoding each delivery and passing it to fn.
// Messages that cannot be decoded are rejected with the decode error.
func (m *MQ) SubscribePostEvents(ctx context.Context, fn func(ctx context.Context, event types.PostEvent) error) error {
	return m.backend.Subscribe(ctx, m.channel, func(ctx context.Context, msg Message) error {
		var event types.PostEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return fmt.Errorf("decode post event %s: %w", msg.ID, err)
		}
		return fn(ctx, event)
	})
}

// Channel returns the name of the events channel.
func (m *MQ) Channel() string {
	return m.channel
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
