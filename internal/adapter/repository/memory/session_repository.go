package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/V4T54L/service-portal/internal/domain"
)

type sessionItem struct {
	payload   []byte
	expiresAt time.Time
}

// SessionRepository stores serialized sessions with an expiry.
type SessionRepository struct {
	mu    sync.Mutex
	items map[string]sessionItem
	now   func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{items: make(map[string]sessionItem), now: time.Now}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.SessionContext, error) {
	r.mu.Lock()
	item, ok := r.items[id]
	if ok && !r.now().Before(item.expiresAt) {
		delete(r.items, id)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	var s domain.SessionContext
	if err := json.Unmarshal(item.payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.SessionContext, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = sessionItem{payload: payload, expiresAt: r.now().Add(ttl)}
	return nil
}
