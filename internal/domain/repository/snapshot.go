// Package repository 定义领域层的存储端口
package repository

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound 指定键下不存在快照
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore 项目库快照存储
// 整个项目库序列化为一个 JSON 快照整存整取，键自带 schema 版本号
type SnapshotStore interface {
	// Load 读取快照，不存在时返回 ErrSnapshotNotFound
	Load(ctx context.Context, key string) ([]byte, error)
	// Save 覆盖写入快照
	Save(ctx context.Context, key string, payload []byte) error
	// Close 释放底层连接
	Close() error
}
