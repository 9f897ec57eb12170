package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/skm-mango/storefront/internal/services"
)

func newTestTopic(t *testing.T, id string) (*pubsub.Topic, *pstest.Server) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "skm-test",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, id)
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	t.Cleanup(topic.Stop)
	return topic, srv
}

func TestPublishOrderEvent(t *testing.T) {
	topic, srv := newTestTopic(t, "order-events")
	publisher, err := NewPubSubPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubPublisher: %v", err)
	}

	occurred := time.Date(2025, 5, 6, 9, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	err = publisher.PublishOrderEvent(context.Background(), services.OrderEvent{
		Type:           "order.status.changed",
		OrderID:        "ord_1",
		UserID:         "u1",
		PreviousStatus: "CONFIRMED",
		CurrentStatus:  "SHIPPED",
		ActorID:        "staff-1",
		OccurredAt:     occurred,
	})
	if err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload orderEventMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != "ord_1" || payload.CurrentStatus != "SHIPPED" || payload.PreviousStatus != "CONFIRMED" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if !payload.OccurredAt.Equal(occurred) || payload.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", payload.OccurredAt)
	}
	if messages[0].Attributes["orderId"] != "ord_1" || messages[0].Attributes["status"] != "SHIPPED" {
		t.Fatalf("unexpected attributes %v", messages[0].Attributes)
	}
}

func TestPublishSettingsEventAndPing(t *testing.T) {
	topic, srv := newTestTopic(t, "settings-events")
	publisher, _ := NewPubSubPublisher(topic)

	if err := publisher.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	err := publisher.PublishSettingsEvent(context.Background(), services.SettingsEvent{
		Type:       "settings.updated",
		Keys:       []string{"season_active"},
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("PublishSettingsEvent: %v", err)
	}
	messages := srv.Messages()
	if len(messages) != 1 || messages[0].Attributes["type"] != "settings.updated" {
		t.Fatalf("unexpected messages %v", messages)
	}
	if _, ok := messages[0].Attributes["orderId"]; ok {
		t.Fatalf("settings events must not carry order attributes")
	}
}

func TestNewPubSubPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
