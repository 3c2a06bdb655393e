package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
)

const (
	maxAuditTextLength    = 255
	emptyQueryPlaceholder = "-"

	defaultReplayRetryCount   = 3
	defaultReplayRetryBackoff = 1 * time.Second
)

// AuditRecord is what callers hand to the audit logger.
type AuditRecord struct {
	Actor     *domain.Actor
	Query     domain.Identifiers
	Action    string
	Found     bool
	Message   string
	ClientIP  string
	UserAgent string
}

// AuditResult reports what happened to a record. Workflow code discards it.
type AuditResult struct {
	Entry   domain.LookupHistoryEntry
	Stored  bool
	Spooled bool
	Err     error
}

// AuditLogger appends one history entry per lookup or service action.
// Failures never reach the caller; entries the store rejects go to the spool.
type AuditLogger struct {
	history domain.HistoryRepository
	spool   domain.AuditSpool
	metrics *metrics.PortalMetrics
	logger  *slog.Logger

	replayMu     sync.Mutex
	spoolPending atomic.Bool
	retryBackoff time.Duration
}

// NewAuditLogger creates an AuditLogger. spool may be nil.
func NewAuditLogger(history domain.HistoryRepository, spool domain.AuditSpool, m *metrics.PortalMetrics, logger *slog.Logger) *AuditLogger {
	a := &AuditLogger{
		history:      history,
		spool:        spool,
		metrics:      m,
		logger:       logger.With("component", "audit_logger"),
		retryBackoff: defaultReplayRetryBackoff,
	}
	// Entries may survive from a previous run.
	a.spoolPending.Store(spool != nil)
	return a
}

// BuildEntry derives the stored entry from a record.
func BuildEntry(rec AuditRecord) domain.LookupHistoryEntry {
	kind, value := domain.DetectKind(rec.Query)
	if value == "" {
		value = emptyQueryPlaceholder
	}
	entry := domain.LookupHistoryEntry{
		Kind:        kind,
		QueryValue:  value,
		Snapshot:    rec.Query.Clone(),
		Action:      rec.Action,
		ResultFound: rec.Found,
		Message:     truncateRunes(rec.Message, maxAuditTextLength),
		ClientIP:    rec.ClientIP,
		UserAgent:   truncateRunes(rec.UserAgent, maxAuditTextLength),
	}
	if rec.Actor != nil {
		entry.ActorID = rec.Actor.UserID
	}
	return entry
}

// Record writes one entry. It never panics and never returns an error to
// the workflow; the result is informational.
func (a *AuditLogger) Record(ctx context.Context, rec AuditRecord) AuditResult {
	entry := BuildEntry(rec)
	err := a.history.Append(ctx, &entry)
	if err == nil {
		return AuditResult{Entry: entry, Stored: true}
	}

	a.metrics.ObserveAuditFailure()
	a.logger.Warn("failed to write audit entry", "error", err, "action", entry.Action)
	if a.spool == nil {
		return AuditResult{Entry: entry, Err: err}
	}

	if spoolErr := a.spool.Write(ctx, entry); spoolErr != nil {
		a.logger.Error("failed to spool audit entry, entry dropped", "error", spoolErr, "action", entry.Action)
		return AuditResult{Entry: entry, Err: fmt.Errorf("%w (spool: %v)", err, spoolErr)}
	}

	a.spoolPending.Store(true)
	a.metrics.ObserveAuditSpooled()
	return AuditResult{Entry: entry, Spooled: true, Err: err}
}

// ReplaySpool moves spooled entries into the history store. Each accepted
// entry leaves the spool, so a replay that fails part way resumes after the
// last stored entry. Record keeps spooling while a replay runs.
func (a *AuditLogger) ReplaySpool(ctx context.Context) error {
	if a.spool == nil || !a.spoolPending.Load() {
		return nil
	}

	a.replayMu.Lock()
	defer a.replayMu.Unlock()

	// Cleared before reading so entries spooled during the replay re-arm it.
	a.spoolPending.Store(false)

	replayed := 0
	err := a.spool.Replay(ctx, func(entry domain.LookupHistoryEntry) error {
		entry.ID = 0
		entry.CreatedAt = time.Time{}
		if err := a.appendWithRetry(ctx, &entry); err != nil {
			return err
		}
		replayed++
		return nil
	})
	if err != nil {
		a.spoolPending.Store(true)
		a.metrics.ObserveAuditReplayed(replayed, false)
		return fmt.Errorf("audit spool replay failed after %d entries: %w", replayed, err)
	}

	a.metrics.ObserveAuditReplayed(replayed, !a.spoolPending.Load())
	if replayed > 0 {
		a.logger.Info("replayed spooled audit entries", "count", replayed)
	}
	return nil
}

// StartSpoolReplay replays the spool every interval until ctx is done.
func (a *AuditLogger) StartSpoolReplay(ctx context.Context, interval time.Duration) {
	if a.spool == nil {
		a.logger.Info("audit spool is not configured, skipping replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopping audit spool replayer")
			return
		case <-ticker.C:
			if err := a.ReplaySpool(ctx); err != nil {
				a.logger.Warn("audit spool replay failed", "error", err)
			}
		}
	}
}

func (a *AuditLogger) appendWithRetry(ctx context.Context, entry *domain.LookupHistoryEntry) error {
	var lastErr error
	for i := 0; i < defaultReplayRetryCount; i++ {
		err := a.history.Append(ctx, entry)
		if err == nil {
			return nil
		}
		lastErr = err
		a.logger.Warn("failed to replay audit entry, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(a.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
