package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/domain"
)

type cacheEntry struct {
	user      domain.User
	expiresAt time.Time
}

// UserRepository implements domain.UserRepository using PostgreSQL as the
// source of truth and an in-memory, time-based cache of known accounts.
type UserRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]cacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	metrics  *metrics.PortalMetrics
}

func NewUserRepository(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.PortalMetrics) *UserRepository {
	return &UserRepository{
		db:       db,
		logger:   logger.With("component", "user_repository"),
		cache:    make(map[string]cacheEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// FindByPhone checks the cache first. Misses are not cached so a fresh
// signup is visible immediately.
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.RLock()
	entry, found := r.cache[phone]
	r.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		r.metrics.ObserveUserCache(true)
		u := entry.user
		return &u, nil
	}
	r.metrics.ObserveUserCache(false)

	query := `
		SELECT id, phone, national_id, password_hash, created_at
		FROM users
		WHERE phone = $1
	`

	var u domain.User
	err := r.db.QueryRowContext(ctx, query, phone).Scan(&u.ID, &u.Phone, &u.NationalID, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to load user", "error", err)
		return nil, fmt.Errorf("find by phone: %w", err)
	}

	r.remember(u)
	return &u, nil
}

func (r *UserRepository) Store(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, phone, national_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, u.ID, u.Phone, u.NationalID, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("store user: %w", err)
	}

	r.remember(*u)
	return nil
}

func (r *UserRepository) remember(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[u.Phone] = cacheEntry{user: u, expiresAt: time.Now().Add(r.cacheTTL)}
}
