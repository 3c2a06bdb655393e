package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/service-portal/internal/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewSessionRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	s := &domain.SessionContext{
		ID:       "sid-1",
		Customer: domain.ManualCustomer{Snapshot: domain.Identifiers{domain.FieldFullName: "Ali", domain.FieldPhone: "0512345678"}},
		Role:     domain.RoleBeneficiary,
	}
	require.NoError(t, repo.Save(ctx, s, 30*time.Minute))

	got, err := repo.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceManual, got.Source())
	assert.Equal(t, domain.RoleBeneficiary, got.Role)
	assert.Equal(t, domain.StepAwaitingServiceSelection, got.Step())

	mr.FastForward(31 * time.Minute)
	_, err = repo.Get(ctx, "sid-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSessionRepository_CorruptPayload(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewSessionRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))
	_, err := repo.Get(context.Background(), "bad")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSessionRepository_Unavailable(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewSessionRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mr.Close()

	_, err := repo.Get(context.Background(), "sid")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.Error(t, repo.Ping(context.Background()))
}

func TestOTPRepository_PendingAndCooldown(t *testing.T) {
	mr, client := setupRedis(t)
	repo := NewOTPRepository(client)
	ctx := context.Background()

	p := domain.PendingSignup{Phone: "0512345678", NationalID: "1122334455", PasswordHash: "h", Code: "123456"}
	require.NoError(t, repo.SavePending(ctx, p, 5*time.Minute))

	got, err := repo.GetPending(ctx, "0512345678")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)

	_, ok, err := repo.AcquireCooldown(ctx, "0512345678", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	remaining, ok, err := repo.AcquireCooldown(ctx, "0512345678", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, remaining, time.Duration(0))

	mr.FastForward(61 * time.Second)
	_, ok, err = repo.AcquireCooldown(ctx, "0512345678", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.DeletePending(ctx, "0512345678"))
	_, err = repo.GetPending(ctx, "0512345678")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
