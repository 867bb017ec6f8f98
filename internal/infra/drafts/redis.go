// Package drafts stores unsaved investigation wizards. Drafts expire after a
// TTL; Redis is used when configured, otherwise an in-process TTL cache.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/investigation"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("drafts")

func draftKey(uid, draftID string) string {
	return fmt.Sprintf("draft:%s:%s", uid, draftID)
}

// RedisStore keeps drafts as JSON strings with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis draft store connected", zap.String("addr", addr), zap.Duration("ttl", ttl))
	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

// SaveDraft stores the snapshot and resets its TTL.
func (s *RedisStore) SaveDraft(ctx context.Context, uid, draftID string, snap investigation.Snapshot) error {
	ctx, span := tracer.Start(ctx, "Redis.SaveDraft")
	defer span.End()

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(uid, draftID), raw, s.ttl).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return nil
}

// LoadDraft returns the snapshot or ErrNotFound when missing or expired.
func (s *RedisStore) LoadDraft(ctx context.Context, uid, draftID string) (*investigation.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Redis.LoadDraft")
	defer span.End()

	raw, err := s.client.Get(ctx, draftKey(uid, draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &domain.ErrNotFound{Resource: "draft", ID: draftID}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "redis", Err: err}
	}

	var snap investigation.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", draftID, err)
	}
	return &snap, nil
}

// DeleteDraft removes the draft; deleting a missing draft is not an error.
func (s *RedisStore) DeleteDraft(ctx context.Context, uid, draftID string) error {
	ctx, span := tracer.Start(ctx, "Redis.DeleteDraft")
	defer span.End()

	if err := s.client.Del(ctx, draftKey(uid, draftID)).Err(); err != nil {
		return &domain.ErrExternalService{Service: "redis", Err: err}
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
