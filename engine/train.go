package engine

import (
	"context"
	"time"

	"github.com/rushteam/simitem/aggregate"
	"github.com/rushteam/simitem/als"
	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/index"
	"github.com/rushteam/simitem/model"
	"github.com/rushteam/simitem/pkg/logging"
	"github.com/rushteam/simitem/pkg/metrics"
)

// TrainingData 是一次训练的输入。
type TrainingData struct {
	// Users 是用户全集；为 nil 时取浏览事件中出现过的用户
	Users []string

	// Items 是物品目录；为 nil 时取浏览事件中出现过的物品（没有类目信息）
	Items []core.CatalogItem

	// ViewEvents 是浏览事件
	ViewEvents []core.ViewEvent
}

// Trainer 把浏览事件训练为相似物品模型：
// 建立用户/物品索引 -> 聚合为偏好三元组 -> 矩阵分解 -> 打包模型。
type Trainer struct {
	// Factorizer 为 nil 时按 TrainConfig.ALS 使用 als.Solver
	Factorizer model.Factorizer

	// Now 用于测试注入时间
	Now func() time.Time
}

// TrainOption 配置单次训练。
type TrainOption func(*trainOptions)

type trainOptions struct {
	diag *core.Diagnostics
}

// WithDiagnostics 收集本次训练中被丢弃的事件。d 未设置 MaxNotes 时使用 TrainConfig.MaxNotes。
func WithDiagnostics(d *core.Diagnostics) TrainOption {
	return func(o *trainOptions) { o.diag = d }
}

// Train 训练模型。
//
// 无法翻译的用户/物品只记录诊断并丢弃；
// 没有任何有效三元组，或 rank/iterations 非正数时返回 INVALID_INPUT，不产出模型。
func (t *Trainer) Train(ctx context.Context, data TrainingData, cfg TrainConfig, opts ...TrainOption) (m *model.Model, err error) {
	log := logging.Component("train")
	start := time.Now()
	defer func() {
		metrics.TrainDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.TrainRunsTotal.WithLabelValues(metrics.StatusError).Inc()
			log.Error().Err(err).Msg("training failed")
			return
		}
		metrics.TrainRunsTotal.WithLabelValues(metrics.StatusOK).Inc()
		metrics.ModelVectors.Set(float64(m.Len()))
	}()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := trainOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	diag := o.diag
	if diag == nil {
		diag = core.NewDiagnostics()
	}
	diag.LimitNotes(cfg.MaxNotes)
	before := diag.Counts()

	users := index.Build(userIDs(data))
	itemIDs, catalog := catalogOf(data)
	items := index.Build(itemIDs)

	ratings, err := aggregate.Aggregate(ctx, data.ViewEvents, users, items, diag, aggregate.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, err
	}

	dropped := make(map[string]int)
	for kind, n := range diag.Counts() {
		if d := n - before[kind]; d > 0 {
			dropped[kind] = d
		}
	}
	metrics.ObserveDrops(dropped)
	if len(dropped) > 0 {
		log.Warn().
			Int("unknown_user", dropped[core.NoteUnknownUser]).
			Int("unknown_item", dropped[core.NoteUnknownItem]).
			Msg("dropped view events with unmappable ids")
	}
	log.Info().
		Int("users", users.Len()).
		Int("items", items.Len()).
		Int("events", len(data.ViewEvents)).
		Int("ratings", len(ratings)).
		Msg("aggregated view events")

	meta := make(map[int]core.CatalogItem, len(catalog))
	for _, it := range catalog {
		idx, _ := items.Lookup(it.ID)
		if _, dup := meta[idx]; dup {
			continue
		}
		meta[idx] = it
	}

	factorizer := t.Factorizer
	if factorizer == nil {
		factorizer = als.New(cfg.ALS)
	}
	builder := &model.Builder{Factorizer: factorizer, Now: t.Now}
	m, err = builder.Build(ctx, ratings, items, meta, cfg.Rank, cfg.Iterations)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("rank", m.Rank()).
		Int("vectors", m.Len()).
		Int("untrained_items", items.Len()-m.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("model trained")
	return m, nil
}

func userIDs(data TrainingData) []string {
	if data.Users != nil {
		return data.Users
	}
	ids := make([]string, len(data.ViewEvents))
	for i, ev := range data.ViewEvents {
		ids[i] = ev.UserID
	}
	return ids
}

func catalogOf(data TrainingData) ([]string, []core.CatalogItem) {
	if data.Items != nil {
		ids := make([]string, len(data.Items))
		for i, it := range data.Items {
			ids[i] = it.ID
		}
		return ids, data.Items
	}
	ids := make([]string, len(data.ViewEvents))
	for i, ev := range data.ViewEvents {
		ids[i] = ev.ItemID
	}
	return ids, nil
}
