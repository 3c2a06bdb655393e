package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/service-portal/internal/domain"
)

// HistoryRepository keeps audit entries in insertion order.
type HistoryRepository struct {
	mu      sync.RWMutex
	entries []domain.LookupHistoryEntry
	last    time.Time
	now     func() time.Time
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{now: time.Now}
}

// Append assigns the id and a creation time strictly after the previous entry's.
func (r *HistoryRepository) Append(ctx context.Context, entry *domain.LookupHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now().UTC()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Microsecond)
	}
	r.last = ts
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = ts
	stored := *entry
	stored.Snapshot = entry.Snapshot.Clone()
	r.entries = append(r.entries, stored)
	return nil
}

func (r *HistoryRepository) Query(ctx context.Context, f domain.HistoryFilter) ([]domain.LookupHistoryEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(f.Query))

	var matched []domain.LookupHistoryEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Found != nil && e.ResultFound != *f.Found {
			continue
		}
		if needle != "" && !entryContains(e, needle) {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	if f.Offset >= total {
		return []domain.LookupHistoryEntry{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

// entryContains matches the way ILIKE does in the Postgres store.
func entryContains(e domain.LookupHistoryEntry, needle string) bool {
	if strings.Contains(strings.ToLower(e.QueryValue), needle) {
		return true
	}
	for _, f := range domain.Fields {
		if strings.Contains(strings.ToLower(e.Snapshot.Get(f)), needle) {
			return true
		}
	}
	return false
}
