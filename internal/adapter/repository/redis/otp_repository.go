package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/service-portal/internal/domain"
)

const (
	pendingKeyPrefix  = "portal:otp:pending:"
	cooldownKeyPrefix = "portal:otp:cooldown:"
)

// OTPRepository implements domain.OTPRepository on Redis.
type OTPRepository struct {
	client *redis.Client
}

func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func (r *OTPRepository) SavePending(ctx context.Context, p domain.PendingSignup, ttl time.Duration) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pending signup: %w", err)
	}
	return r.client.Set(ctx, pendingKeyPrefix+p.Phone, payload, ttl).Err()
}

func (r *OTPRepository) GetPending(ctx context.Context, phone string) (*domain.PendingSignup, error) {
	payload, err := r.client.Get(ctx, pendingKeyPrefix+phone).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to GET pending signup: %w", err)
	}
	var p domain.PendingSignup
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending signup: %w", err)
	}
	return &p, nil
}

func (r *OTPRepository) DeletePending(ctx context.Context, phone string) error {
	return r.client.Del(ctx, pendingKeyPrefix+phone).Err()
}

// AcquireCooldown uses SET NX so concurrent requests cannot both send a code.
func (r *OTPRepository) AcquireCooldown(ctx context.Context, phone string, cooldown time.Duration) (time.Duration, bool, error) {
	key := cooldownKeyPrefix + phone
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), cooldown).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to SETNX cooldown: %w", err)
	}
	if ok {
		return 0, true, nil
	}
	remaining, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cooldown ttl: %w", err)
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false, nil
}
