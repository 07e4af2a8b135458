package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aipen-studio-api/internal/domain/repository"
)

// SnapshotStore 基于 Redis 的快照存储，快照不设过期时间
type SnapshotStore struct {
	client *Client
}

// NewSnapshotStore 创建 Redis 快照存储
func NewSnapshotStore(client *Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// Load 读取快照
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "redis.SnapshotLoad",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	payload, err := s.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrSnapshotNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return payload, nil
}

// Save 覆盖写入快照
func (s *SnapshotStore) Save(ctx context.Context, key string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "redis.SnapshotSave",
		trace.WithAttributes(
			attribute.String("redis.key", key),
			attribute.Int("snapshot.size", len(payload)),
		))
	defer span.End()

	if err := s.client.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Close 关闭底层连接
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
