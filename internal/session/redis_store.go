// Package session stores login sessions keyed by bearer token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pos_service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "session:"

type RedisStore struct {
	client *redis.Client
	log    *logrus.Logger
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		log:    logger,
		now:    time.Now,
	}
}

// Create stores the session with a TTL matching its expiry.
func (s *RedisStore) Create(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", session.ExpiresAt.Format(time.RFC3339))
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session marshal error: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+session.Token, data, ttl).Err(); err != nil {
		s.log.Errorf("Session: Failed to store session for user %s: %v", session.UserID, err)
		return fmt.Errorf("session set error: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		s.log.Errorf("Session: Failed to read session: %v", err)
		return nil, fmt.Errorf("session get error: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session unmarshal error: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session delete error: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
