package memory

import (
	"context"
	"sync"
	"time"

	"github.com/V4T54L/service-portal/internal/domain"
)

type pendingItem struct {
	signup    domain.PendingSignup
	expiresAt time.Time
}

// OTPRepository keeps pending signups and resend cooldowns in memory.
type OTPRepository struct {
	mu        sync.Mutex
	pending   map[string]pendingItem
	cooldowns map[string]time.Time
	now       func() time.Time
}

func NewOTPRepository() *OTPRepository {
	return &OTPRepository{
		pending:   make(map[string]pendingItem),
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (r *OTPRepository) SavePending(ctx context.Context, p domain.PendingSignup, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[p.Phone] = pendingItem{signup: p, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *OTPRepository) GetPending(ctx context.Context, phone string) (*domain.PendingSignup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.pending[phone]
	if !ok || !r.now().Before(item.expiresAt) {
		delete(r.pending, phone)
		return nil, domain.ErrNotFound
	}
	p := item.signup
	return &p, nil
}

func (r *OTPRepository) DeletePending(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, phone)
	return nil
}

func (r *OTPRepository) AcquireCooldown(ctx context.Context, phone string, cooldown time.Duration) (time.Duration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if until, ok := r.cooldowns[phone]; ok && now.Before(until) {
		return until.Sub(now), false, nil
	}
	r.cooldowns[phone] = now.Add(cooldown)
	return 0, true, nil
}
