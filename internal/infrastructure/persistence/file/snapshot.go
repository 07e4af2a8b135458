// Package file 提供基于本地文件的快照存储
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"aipen-studio-api/internal/domain/repository"
)

// Store 文件快照存储，每个键对应一个 JSON 文件
type Store struct {
	dir string
}

// NewStore 创建文件快照存储
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load 读取快照文件
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return payload, nil
}

// Save 写入快照文件
// 先写临时文件再原子改名，避免写一半时崩溃留下截断的快照
func (s *Store) Save(ctx context.Context, key string, payload []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot %s: %w", key, err)
	}
	return nil
}

// Close 文件存储无需释放资源
func (s *Store) Close() error {
	return nil
}
