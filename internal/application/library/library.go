// Package library 管理书稿项目库与快照持久化
package library

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"aipen-studio-api/internal/domain/entity"
	"aipen-studio-api/internal/domain/repository"
	apperrors "aipen-studio-api/pkg/errors"
	"aipen-studio-api/pkg/logger"
	"aipen-studio-api/pkg/metrics"
)

// Library 项目库，持有全部书稿并整体快照到存储后端
// 写操作同步修改内存态，持久化是尽力而为：失败只记日志，不回滚内存
type Library struct {
	mu      sync.RWMutex
	books   []*entity.Book
	store   repository.SnapshotStore
	key     string
	backend string
}

// New 创建项目库
func New(store repository.SnapshotStore, key, backend string) *Library {
	return &Library{
		store:   store,
		key:     key,
		backend: backend,
	}
}

// Load 启动时从快照恢复项目库
// 快照不存在按空库处理；快照损坏时告警并从空库开始，不阻塞启动
func (l *Library) Load(ctx context.Context) error {
	payload, err := l.store.Load(ctx, l.key)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			logger.Info(ctx, "no library snapshot found, starting empty", "key", l.key)
			return nil
		}
		return apperrors.Wrap(err, apperrors.CodeStorageError, "load library snapshot")
	}

	var books []*entity.Book
	if err := json.Unmarshal(payload, &books); err != nil {
		logger.Warn(ctx, "library snapshot corrupted, starting empty",
			"key", l.key,
			"error", err,
		)
		return nil
	}

	l.mu.Lock()
	l.books = books
	l.mu.Unlock()

	logger.Info(ctx, "library snapshot loaded", "key", l.key, "books", len(books))
	return nil
}

// Books 返回全部书稿的列表快照，顺序为最近更新在前
func (l *Library) Books() []*entity.Book {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*entity.Book, len(l.books))
	copy(out, l.books)
	return out
}

// Get 按 ID 查找书稿
func (l *Library) Get(id string) (*entity.Book, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, b := range l.books {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, apperrors.ErrBookNotFound
}

// Create 新书入库，置于列表头部
func (l *Library) Create(ctx context.Context, book *entity.Book) {
	l.mu.Lock()
	l.books = append([]*entity.Book{book}, l.books...)
	l.mu.Unlock()

	l.persist(ctx)
}

// Update 覆盖同 ID 书稿并移到列表头部；不存在时按新建处理
func (l *Library) Update(ctx context.Context, book *entity.Book) {
	l.mu.Lock()
	rest := make([]*entity.Book, 0, len(l.books))
	for _, b := range l.books {
		if b.ID != book.ID {
			rest = append(rest, b)
		}
	}
	l.books = append([]*entity.Book{book}, rest...)
	l.mu.Unlock()

	l.persist(ctx)
}

// Delete 删除书稿
func (l *Library) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	found := false
	rest := make([]*entity.Book, 0, len(l.books))
	for _, b := range l.books {
		if b.ID == id {
			found = true
			continue
		}
		rest = append(rest, b)
	}
	l.books = rest
	l.mu.Unlock()

	if !found {
		return apperrors.ErrBookNotFound
	}
	l.persist(ctx)
	return nil
}

// persist 将整个项目库写入快照存储，失败只记日志
func (l *Library) persist(ctx context.Context) {
	l.mu.RLock()
	payload, err := json.Marshal(l.books)
	l.mu.RUnlock()
	if err != nil {
		metrics.SnapshotSaveTotal.WithLabelValues(l.backend, "error").Inc()
		logger.Error(ctx, "marshal library snapshot failed", err)
		return
	}

	if err := l.store.Save(ctx, l.key, payload); err != nil {
		metrics.SnapshotSaveTotal.WithLabelValues(l.backend, "error").Inc()
		logger.Error(ctx, "persist library snapshot failed", err,
			"key", l.key,
			"size", len(payload),
		)
		return
	}

	metrics.SnapshotSaveTotal.WithLabelValues(l.backend, "success").Inc()
	metrics.SnapshotSizeBytes.Set(float64(len(payload)))
}
