package engine

import (
	"context"

	"github.com/rushteam/simitem/config"
	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/feast"
	"github.com/rushteam/simitem/model"
	"github.com/rushteam/simitem/pkg/logging"
	"github.com/rushteam/simitem/store"
)

// DefaultStoreName 是 OpenStore 注册打开的 Store 时使用的名称，
// 配置中的 deny_list 过滤器可以写 store: default 引用它。
const DefaultStoreName = "default"

// OpenStore 按配置打开模型快照存储：配置了 redis 时使用 RedisStore，否则使用 MemoryStore。
//
// 打开的 Store 以 DefaultStoreName 和后端名称（memory / redis）注册到 config，
// 因此应在 NewPredictorFromConfig 之前调用。
func OpenStore(ctx context.Context, cfg *Config) (core.Store, error) {
	var s core.Store
	if cfg.Redis == nil {
		s = store.NewMemoryStore()
	} else {
		rs, err := store.NewRedisStore(ctx, *cfg.Redis)
		if err != nil {
			return nil, err
		}
		log := logging.Component("store")
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		s = rs
	}
	config.RegisterStore(DefaultStoreName, s)
	config.RegisterStore(s.Name(), s)
	return s, nil
}

// OpenCatalog 按配置创建 Feast 物品目录加载器；未配置 feast 时返回 nil。
func OpenCatalog(cfg *Config) (*feast.CatalogLoader, error) {
	if cfg.Feast == nil {
		return nil, nil
	}
	fetcher, err := feast.NewGrpcFetcher(*cfg.Feast)
	if err != nil {
		return nil, err
	}
	return &feast.CatalogLoader{
		Fetcher:           fetcher,
		Project:           cfg.Feast.Project,
		CategoriesFeature: cfg.CategoriesFeature,
	}, nil
}

// Publish 把模型保存到 cfg.ModelKey，供预测进程 Load。
func Publish(ctx context.Context, s core.Store, cfg *Config, m *model.Model) error {
	if err := model.Save(ctx, s, cfg.ModelKey, m); err != nil {
		return err
	}
	log := logging.Component("store")
	log.Info().
		Str("store", s.Name()).
		Str("key", cfg.ModelKey).
		Int("vectors", m.Len()).
		Msg("model published")
	return nil
}
