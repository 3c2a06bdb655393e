package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/service-portal/internal/domain"
)

const sessionKeyPrefix = "portal:session:"

// SessionRepository implements domain.SessionRepository with expiring Redis keys.
type SessionRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func NewSessionRepository(client *redis.Client, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{client: client, logger: logger.With("component", "redis_session_repository")}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.SessionContext, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to GET session: %w", err)
	}

	var s domain.SessionContext
	if err := json.Unmarshal(payload, &s); err != nil {
		r.logger.Warn("discarding unreadable session", "error", err)
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.SessionContext, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to SET session: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
