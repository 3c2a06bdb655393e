package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/domain/mocks"
)

var testNote = domain.Notification{
	Reference:    "UW-250301-0A1B2C",
	ServiceKey:   "pay_debt",
	ServiceTitle: "Pay outstanding debt",
	Role:         domain.RoleOwner,
	CustomerName: "Ali Hassan",
	Phone:        "0512345678",
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleNotifier(&buf).Notify(context.Background(), testNote))

	out := buf.String()
	assert.Contains(t, out, "Reference: UW-250301-0A1B2C")
	assert.Contains(t, out, "Service: Pay outstanding debt (pay_debt)")
	assert.Contains(t, out, "Role: owner")
}

func TestSMSNotifier(t *testing.T) {
	sender := &mocks.MockSMSSender{}
	n := NewSMSNotifier(sender)

	require.NoError(t, n.Notify(context.Background(), testNote))
	require.Len(t, sender.Messages, 1)
	assert.Equal(t, "0512345678", sender.Messages[0].Recipient)
	assert.Contains(t, sender.Messages[0].Body, "UW-250301-0A1B2C")

	noPhone := testNote
	noPhone.Phone = ""
	require.NoError(t, n.Notify(context.Background(), noPhone))
	assert.Len(t, sender.Messages, 1)
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewKafkaNotifier(w).Notify(context.Background(), testNote))

	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("UW-250301-0A1B2C"), w.messages[0].Key)

	var event map[string]any
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, requestIssuedEvent, event["event"])
	assert.Equal(t, "pay_debt", event["service_key"])
	assert.Equal(t, "owner", event["role"])
}

func TestMultiNotifier_ContinuesPastFailures(t *testing.T) {
	m := metrics.NewPortalMetrics(prometheus.NewRegistry())
	failing := &fakeWriter{err: errors.New("broker down")}
	sink := &mocks.MockNotifier{}
	var buf bytes.Buffer

	n := NewMultiNotifier(m, slog.New(slog.NewTextHandler(io.Discard, nil)),
		Channel{Name: "kafka", Notifier: NewKafkaNotifier(failing)},
		Channel{Name: "console", Notifier: NewConsoleNotifier(&buf)},
		Channel{Name: "mock", Notifier: sink},
	)

	err := n.Notify(context.Background(), testNote)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker down")
	assert.Len(t, sink.Sent, 1)
	assert.NotEmpty(t, buf.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("kafka")))
}
