package model

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/simitem/core"
)

// snapshot 是模型在 Store 中的 JSON 表示。
// 三个切片按模型下标对齐：ItemIDs[i] 的向量是 Vectors[i]、类目是 Categories[i]。
type snapshot struct {
	Rank       int         `json:"rank"`
	TrainedAt  time.Time   `json:"trained_at"`
	ItemIDs    []string    `json:"item_ids"`
	Vectors    [][]float64 `json:"vectors"`
	Categories [][]string  `json:"categories"`
}

// Save 把模型快照写入 Store 的 key。ttl 单位为秒，语义同 core.Store.Set。
func Save(ctx context.Context, s core.Store, key string, m *Model, ttl ...int) error {
	if m == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "model: nil model")
	}
	snap := snapshot{
		Rank:       m.rank,
		TrainedAt:  m.trainedAt,
		ItemIDs:    m.itemIndex.IDs(),
		Vectors:    make([][]float64, m.Len()),
		Categories: make([][]string, m.Len()),
	}
	for _, idx := range m.indices {
		snap.Vectors[idx] = m.features[idx]
		snap.Categories[idx] = m.items[idx].Categories
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal model snapshot: %w", err)
	}
	if err := s.Set(ctx, key, data, ttl...); err != nil {
		return fmt.Errorf("store %s set %s: %w", s.Name(), key, err)
	}
	return nil
}

// Load 从 Store 读取快照并重建不可变模型。
// key 不存在时返回 core.ErrStoreNotFound（可用 core.IsStoreNotFound 判断）。
func Load(ctx context.Context, s core.Store, key string) (*Model, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "model: decode snapshot: "+err.Error())
	}
	if len(snap.Categories) != len(snap.ItemIDs) {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "model: snapshot arrays are not aligned")
	}

	items := make([]core.CatalogItem, len(snap.ItemIDs))
	for i, id := range snap.ItemIDs {
		items[i] = core.CatalogItem{ID: id, Categories: snap.Categories[i]}
	}
	m, err := New(snap.Rank, items, snap.Vectors, snap.TrainedAt)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return m, nil
}
