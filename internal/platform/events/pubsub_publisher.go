package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/skm-mango/storefront/internal/services"
)

// PubSubPublisher publishes storefront domain events to a single Pub/Sub topic.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a publisher for topic.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	return &PubSubPublisher{topic: topic, marshal: json.Marshal}, nil
}

type orderEventMessage struct {
	Type           string         `json:"type"`
	OrderID        string         `json:"order_id"`
	UserID         string         `json:"user_id,omitempty"`
	PreviousStatus string         `json:"previous_status,omitempty"`
	CurrentStatus  string         `json:"current_status,omitempty"`
	ActorID        string         `json:"actor_id,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type settingsEventMessage struct {
	Type       string    `json:"type"`
	Keys       []string  `json:"keys"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishOrderEvent implements services.OrderEventPublisher.
func (p *PubSubPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	attrs := map[string]string{}
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "status", event.CurrentStatus)
	_, err := p.publish(ctx, orderEventMessage{
		Type:           event.Type,
		OrderID:        event.OrderID,
		UserID:         event.UserID,
		PreviousStatus: event.PreviousStatus,
		CurrentStatus:  event.CurrentStatus,
		ActorID:        event.ActorID,
		OccurredAt:     event.OccurredAt.UTC(),
		Metadata:       event.Metadata,
	}, attrs)
	return err
}

// PublishSettingsEvent implements services.SettingsEventPublisher.
func (p *PubSubPublisher) PublishSettingsEvent(ctx context.Context, event services.SettingsEvent) error {
	attrs := map[string]string{}
	setAttr(attrs, "type", event.Type)
	_, err := p.publish(ctx, settingsEventMessage{
		Type:       event.Type,
		Keys:       event.Keys,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt.UTC(),
	}, attrs)
	return err
}

// Ping confirms the topic exists.
func (p *PubSubPublisher) Ping(ctx context.Context) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub publisher: not initialised")
	}
	ok, err := p.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("pubsub topic exists: %w", err)
	}
	if !ok {
		return fmt.Errorf("pubsub topic %s not found", p.topic.ID())
	}
	return nil
}

func (p *PubSubPublisher) publish(ctx context.Context, payload any, attrs map[string]string) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}
	data, err := p.marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
