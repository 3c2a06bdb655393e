package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
)

// Channel is a named notification sink.
type Channel struct {
	Name     string
	Notifier domain.Notifier
}

// MultiNotifier fans a notification out to every channel. A failing channel
// does not stop the others.
type MultiNotifier struct {
	channels []Channel
	metrics  *metrics.PortalMetrics
	logger   *slog.Logger
}

func NewMultiNotifier(m *metrics.PortalMetrics, logger *slog.Logger, channels ...Channel) *MultiNotifier {
	return &MultiNotifier{
		channels: channels,
		metrics:  m,
		logger:   logger.With("component", "notifier"),
	}
}

func (n *MultiNotifier) Notify(ctx context.Context, note domain.Notification) error {
	var errs []error
	for _, ch := range n.channels {
		if err := ch.Notifier.Notify(ctx, note); err != nil {
			n.metrics.ObserveNotificationFailure(ch.Name)
			n.logger.Warn("notification channel failed", "channel", ch.Name, "reference", note.Reference, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}
