// Package wire 手工装配应用依赖
package wire

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"aipen-studio-api/internal/application/generation"
	"aipen-studio-api/internal/application/library"
	"aipen-studio-api/internal/application/studio"
	"aipen-studio-api/internal/config"
	"aipen-studio-api/internal/domain/repository"
	"aipen-studio-api/internal/infrastructure/imagegen"
	"aipen-studio-api/internal/infrastructure/llm"
	filestore "aipen-studio-api/internal/infrastructure/persistence/file"
	pgstore "aipen-studio-api/internal/infrastructure/persistence/postgres"
	redisstore "aipen-studio-api/internal/infrastructure/persistence/redis"
	"aipen-studio-api/internal/interfaces/http/handler"
	"aipen-studio-api/internal/interfaces/http/router"
	"aipen-studio-api/pkg/logger"
)

// App 装配完成的应用
type App struct {
	router  *router.Router
	session *studio.Session
	library *library.Library
	store   repository.SnapshotStore
}

// Engine 返回 HTTP 引擎
func (a *App) Engine() *gin.Engine {
	return a.router.Engine()
}

// InitializeApp 按配置装配应用，返回清理函数
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	// 快照存储后端
	store, health, err := buildSnapshotStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	// 项目库，启动时恢复快照
	lib := library.New(store, cfg.Store.Key, cfg.Store.Backend)
	if err := lib.Load(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	// 生成客户端
	chatFactory := llm.NewEinoFactory(cfg)
	imageClient, err := imagegen.NewClient(ctx, &cfg.Image)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to init image client: %w", err)
	}
	gen := generation.NewClient(chatFactory, imageClient, &cfg.Generation)

	// 工作台会话
	session := studio.NewSession(gen, lib)

	// HTTP 层
	handlers := router.Handlers{
		Health: handler.NewHealthHandler(cfg.App.Version, health),
		Studio: handler.NewStudioHandler(session),
		Book:   handler.NewBookHandler(session, lib),
	}
	r := router.New(cfg, handlers)

	app := &App{
		router:  r,
		session: session,
		library: lib,
		store:   store,
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Error(context.Background(), "failed to close snapshot store", err)
		}
	}
	return app, cleanup, nil
}

// buildSnapshotStore 按配置选择快照存储后端
// 文件后端没有外部连接，健康检查返回 nil 表示无需探活
func buildSnapshotStore(cfg *config.Config) (repository.SnapshotStore, handler.HealthChecker, error) {
	switch cfg.Store.Backend {
	case "file", "":
		store, err := filestore.NewStore(cfg.Store.File.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "redis":
		client, err := redisstore.NewClient(&cfg.Store.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewSnapshotStore(client), client, nil

	case "postgres":
		client, err := pgstore.NewClient(&cfg.Store.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := pgstore.NewSnapshotStore(client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
