package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/V4T54L/service-portal/internal/domain"
)

const requestIssuedEvent = "service_request.issued"

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type requestEvent struct {
	Event string `json:"event"`
	domain.Notification
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaNotifier publishes one event per issued request, keyed by reference.
type KafkaNotifier struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafkaNotifier(writer MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now}
}

// NewKafkaWriter builds a writer for the request event topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, note domain.Notification) error {
	payload, err := json.Marshal(requestEvent{
		Event:        requestIssuedEvent,
		Notification: note,
		OccurredAt:   n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request event: %w", err)
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(note.Reference),
		Value: payload,
	})
}
