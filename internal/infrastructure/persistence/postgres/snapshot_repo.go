package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aipen-studio-api/internal/domain/repository"
)

// snapshotRecord 快照表记录，一键一行
type snapshotRecord struct {
	Key       string    `gorm:"primaryKey;column:key;size:128"`
	Payload   []byte    `gorm:"column:payload;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (snapshotRecord) TableName() string {
	return "library_snapshots"
}

// SnapshotStore 基于 PostgreSQL 的快照存储
type SnapshotStore struct {
	client *Client
}

// NewSnapshotStore 创建 PostgreSQL 快照存储并确保表存在
func NewSnapshotStore(client *Client) (*SnapshotStore, error) {
	if err := client.DB().AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshot table: %w", err)
	}
	return &SnapshotStore{client: client}, nil
}

// Load 读取快照
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotLoad",
		trace.WithAttributes(attribute.String("snapshot.key", key)))
	defer span.End()

	var rec snapshotRecord
	err := s.client.DB().WithContext(ctx).First(&rec, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return rec.Payload, nil
}

// Save 覆盖写入快照，按主键 upsert
func (s *SnapshotStore) Save(ctx context.Context, key string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotSave",
		trace.WithAttributes(
			attribute.String("snapshot.key", key),
			attribute.Int("snapshot.size", len(payload)),
		))
	defer span.End()

	rec := snapshotRecord{
		Key:       key,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	err := s.client.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Close 关闭底层连接
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
