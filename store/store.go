// Package store 提供 core.Store 的实现：内存、Redis、Badger。
//
// 主要用于持久化训练得到的模型快照，使进程重启后无需重新训练：
//
//	s, err := store.Open(ctx, store.Config{Backend: "badger", Path: "./data/models"})
//	engine := recall.NewMFEngine(cat, cfg, content, recall.WithSnapshotStore(s))
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/cinesuggest/core"
)

// 后端名称
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config 是存储后端配置。
type Config struct {
	// Backend: none / memory / redis / badger
	Backend string `koanf:"backend"`

	// Redis
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`

	// Badger 数据目录，为空时使用内存模式
	Path string `koanf:"path"`

}

// Open 按配置创建存储。Backend 为空或 none 时返回 (nil, nil)。
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	case BackendBadger:
		return NewBadgerStore(cfg.Path)
	default:
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			fmt.Sprintf("store: unknown backend %q", cfg.Backend))
	}
}

func ttlDuration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}
