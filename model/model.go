// Package model 定义训练产物 Model 以及构建它的 Builder。
//
// Model 是一次训练的不可变产物：物品隐向量 + 物品索引 + 物品元数据。
// 构建完成后没有任何修改接口，可被任意多个并发预测直接共享，无需加锁。
package model

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/index"
)

// Factorizer 是隐式反馈矩阵分解的黑盒约定。
//
// 输入三元组视为隐式置信度权重，经过 iterations 轮优化后，
// 为每个至少出现在一个三元组中的物品下标返回一个长度为 rank 的隐向量。
// 实现：als.Solver。
type Factorizer interface {
	Factorize(ctx context.Context, ratings []core.Rating, rank, iterations int) (map[int][]float64, error)
}

// Model 是训练好的相似物品模型。
//
// 不变量：
//   - 索引中的每个物品下标都恰好对应一个隐向量
//   - 所有隐向量长度都等于 Rank()
//
// Vector 返回的切片与模型共享底层数组，调用方只能读。
type Model struct {
	rank      int
	features  map[int][]float64
	itemIndex *index.Index
	items     map[int]core.CatalogItem
	indices   []int
	trainedAt time.Time
}

func newModel(rank int, ids []string, vectors [][]float64, items []core.CatalogItem, trainedAt time.Time) *Model {
	m := &Model{
		rank:      rank,
		features:  make(map[int][]float64, len(ids)),
		itemIndex: index.Build(ids),
		items:     make(map[int]core.CatalogItem, len(ids)),
		indices:   make([]int, len(ids)),
		trainedAt: trainedAt,
	}
	for i := range ids {
		m.features[i] = vectors[i]
		m.items[i] = items[i]
		m.indices[i] = i
	}
	return m
}

// New 直接由物品元数据与对齐的隐向量构建模型，用于加载外部训练好的向量。
// items[i] 的隐向量是 vectors[i]；ID 不能重复，向量长度必须都等于 rank。
func New(rank int, items []core.CatalogItem, vectors [][]float64, trainedAt time.Time) (*Model, error) {
	invalid := func(msg string) error {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "model: "+msg)
	}
	if rank <= 0 {
		return nil, invalid(fmt.Sprintf("rank must be positive, got %d", rank))
	}
	if len(items) == 0 {
		return nil, invalid("no items")
	}
	if len(vectors) != len(items) {
		return nil, invalid(fmt.Sprintf("%d items but %d vectors", len(items), len(vectors)))
	}
	ids := make([]string, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if _, dup := seen[it.ID]; dup {
			return nil, invalid(fmt.Sprintf("duplicate item id %q", it.ID))
		}
		seen[it.ID] = struct{}{}
		if len(vectors[i]) != rank {
			return nil, invalid(fmt.Sprintf("item %q vector length %d, want %d", it.ID, len(vectors[i]), rank))
		}
		ids[i] = it.ID
	}
	return newModel(rank, ids, vectors, items, trainedAt), nil
}

// Rank 返回隐向量维度。
func (m *Model) Rank() int { return m.rank }

// Len 返回模型中的物品数（即有隐向量的物品数）。
func (m *Model) Len() int { return len(m.indices) }

// TrainedAt 返回模型构建时间。
func (m *Model) TrainedAt() time.Time { return m.trainedAt }

// ItemIndex 返回模型的物品索引，用于查询/白名单/黑名单的 ID 翻译。
func (m *Model) ItemIndex() *index.Index { return m.itemIndex }

// Vector 返回物品下标对应的隐向量。
func (m *Model) Vector(idx int) ([]float64, bool) {
	v, ok := m.features[idx]
	return v, ok
}

// Item 返回物品下标对应的元数据。
func (m *Model) Item(idx int) (core.CatalogItem, bool) {
	it, ok := m.items[idx]
	return it, ok
}

// Indices 按升序返回全部物品下标，调用方只能读。
func (m *Model) Indices() []int { return m.indices }

// Builder 调用 Factorizer 并把结果与索引、物品元数据打包为 Model。
type Builder struct {
	Factorizer Factorizer

	// Now 用于测试注入时间，默认 time.Now
	Now func() time.Time
}

// Build 训练并打包模型。
//
//   - ratings 中的物品下标属于 itemIndex（训练时基于物品目录构建的索引）
//   - items 是按同一索引组织的物品元数据，缺失时视为无类目
//
// 没有隐向量的物品（没有任何有效浏览）不进入模型：
// 模型会基于有向量的物品重新建立索引，保证索引与向量一一对应。
func (b *Builder) Build(
	ctx context.Context,
	ratings []core.Rating,
	itemIndex *index.Index,
	items map[int]core.CatalogItem,
	rank, iterations int,
) (*Model, error) {
	if len(ratings) == 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "train: no preference triples to factorize")
	}
	if rank <= 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, fmt.Sprintf("train: rank must be positive, got %d", rank))
	}
	if iterations <= 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, fmt.Sprintf("train: iterations must be positive, got %d", iterations))
	}
	if b.Factorizer == nil {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "train: factorizer is nil")
	}

	vectors, err := b.Factorizer.Factorize(ctx, ratings, rank, iterations)
	if err != nil {
		return nil, fmt.Errorf("factorize: %w", err)
	}
	if len(vectors) == 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInternalError, "train: factorizer returned no item vectors")
	}

	trained := make([]int, 0, len(vectors))
	for idx, v := range vectors {
		if _, err := itemIndex.Backward(idx); err != nil {
			return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInternalError,
				fmt.Sprintf("train: factorizer returned unknown item position %d", idx))
		}
		if len(v) != rank {
			return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInternalError,
				fmt.Sprintf("train: item position %d has vector length %d, want %d", idx, len(v), rank))
		}
		trained = append(trained, idx)
	}
	sort.Ints(trained)

	ids := make([]string, len(trained))
	vecs := make([][]float64, len(trained))
	meta := make([]core.CatalogItem, len(trained))
	for i, idx := range trained {
		ids[i] = itemIndex.MustBackward(idx)
		vecs[i] = vectors[idx]
		it, ok := items[idx]
		if !ok {
			it = core.CatalogItem{ID: ids[i]}
		}
		meta[i] = it
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return newModel(rank, ids, vecs, meta, now()), nil
}
