package session

import (
	"context"
	"io"
	"testing"
	"time"

	"pos_service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedisAddr = "localhost:6379"

func newSession(token string, expires time.Time) *domain.Session {
	return &domain.Session{
		Token:     token,
		UserID:    "user-1",
		Username:  "cashier",
		Role:      domain.RoleSales,
		ExpiresAt: expires,
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, newSession("tok", time.Now().Add(time.Hour))))

	got, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, domain.RoleSales, got.Role)

	require.NoError(t, store.Delete(ctx, "tok"))
	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_ExpiredSessionIsGone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, newSession("tok", now.Add(time.Minute))))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_UnknownToken(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func setupRedisStore(t *testing.T) (*RedisStore, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRedisStore(client, logger), client
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, client := setupRedisStore(t)
	ctx := context.Background()
	token := "test-" + time.Now().Format("150405.000000000")

	require.NoError(t, store.Create(ctx, newSession(token, time.Now().Add(time.Minute))))
	defer client.Del(ctx, keyPrefix+token)

	ttl, err := client.TTL(ctx, keyPrefix+token).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "cashier", got.Username)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_RejectsExpiredSession(t *testing.T) {
	store, _ := setupRedisStore(t)
	err := store.Create(context.Background(), newSession("expired", time.Now().Add(-time.Second)))
	assert.Error(t, err)
}
