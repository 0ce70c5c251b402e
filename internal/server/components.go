package server

import (
	"context"
	"fmt"
	"path/filepath"

	v1 "choma/internal/api/v1"
	"choma/internal/config"
	"choma/internal/session"
	"choma/internal/store"
	"choma/internal/store/mongostore"
	"choma/internal/submit"
)

// Repository 带关闭方法的存储
type Repository interface {
	v1.Repository
	Close() error
}

// OpenRepository 按 storage.driver 打开餐品存储
func OpenRepository(ctx context.Context, cfg *config.AppConfig) (Repository, error) {
	switch cfg.Storage.Driver {
	case "mongo":
		repo, err := mongostore.Connect(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mongo: %w", err)
		}
		return repo, nil
	default:
		dataDir, err := config.EnsureDataDir(cfg)
		if err != nil {
			dataDir = cfg.Data.DataDir
		}
		repo, err := store.New(filepath.Join(dataDir, cfg.Storage.SQLite))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return repo, nil
	}
}

// OpenSessionStore 按 session.driver 创建暂存；返回的关闭函数总是非 nil
func OpenSessionStore(ctx context.Context, cfg *config.AppConfig) (session.Store, func() error, error) {
	if cfg.Session.Driver != "redis" {
		return session.NewMemoryStore(cfg.Session.TTL()), func() error { return nil }, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.Session.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(client, cfg.Session.TTL()), client.Close, nil
}

// NewBackend 按 submit.mode 选择提交后端：local 直接写入 repo，remote 调用批量接口
func NewBackend(cfg *config.AppConfig, repo submit.MealRepository) (submit.Backend, error) {
	if cfg.Submit.Mode != "remote" {
		return submit.NewStoreBackend(repo), nil
	}
	return submit.NewHTTPBackend(submit.HTTPOptions{
		Endpoint:      cfg.Submit.Endpoint,
		Token:         cfg.Submit.Token,
		Timeout:       cfg.Submit.Timeout(),
		RatePerSecond: cfg.Submit.RatePerSecond,
		Burst:         cfg.Submit.Burst,
	})
}
