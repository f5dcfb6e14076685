// Package recall 实现相似物品打分：按余弦相似度为模型中的每个物品计算对查询物品的聚合分数。
package recall

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/model"
	"github.com/rushteam/simitem/pipeline"
	"github.com/rushteam/simitem/pkg/utils"
)

// Cosine 计算两个等长向量的余弦相似度 (v1·v2) / (||v1|| * ||v2||)。
// 任一向量模长为 0 时返回 0。
func Cosine(v1, v2 []float64) float64 {
	n1 := floats.Norm(v1, 2)
	n2 := floats.Norm(v2, 2)
	if n1 == 0 || n2 == 0 {
		return 0
	}
	return floats.Dot(v1, v2) / (n1 * n2)
}

// Scorer 计算模型中每个物品对一组查询物品的聚合相似度：
// 对每个查询物品求余弦相似度，再对所有查询物品求和。
type Scorer struct {
	// Workers 是并发打分分片数，<= 0 时为 1
	Workers int
}

// Score 翻译查询物品 ID 后打分。
// 无法翻译的 ID 记入 diag 后跳过；全部无法翻译时返回空 map 与 nil error。
func (s *Scorer) Score(ctx context.Context, m *model.Model, queryIDs []string, diag *core.Diagnostics) (map[int]float64, error) {
	query := m.ItemIndex().Translate(queryIDs, func(id string) {
		diag.Record(core.NoteUnknownQueryItem, id, "query item not in model")
	})
	if len(query) == 0 {
		diag.Record(core.NoteEmptyQuery, "", "no valid items in query")
		return map[int]float64{}, nil
	}
	return s.ScoreIndices(ctx, m, query)
}

// ScoreIndices 对已翻译的查询物品下标打分，返回模型中每个物品下标的聚合分数。
// 查询下标在模型中没有隐向量属于内部一致性错误。
func (s *Scorer) ScoreIndices(ctx context.Context, m *model.Model, query core.IndexSet) (map[int]float64, error) {
	if len(query) == 0 {
		return map[int]float64{}, nil
	}

	// 查询下标排序后再求和，保证同一模型同一查询的浮点结果完全一致
	qidx := make([]int, 0, len(query))
	for idx := range query {
		qidx = append(qidx, idx)
	}
	sort.Ints(qidx)

	qvecs := make([][]float64, len(qidx))
	qnorms := make([]float64, len(qidx))
	for i, idx := range qidx {
		v, ok := m.Vector(idx)
		if !ok {
			return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInternalError,
				fmt.Sprintf("predict: query item position %d has no feature vector", idx))
		}
		qvecs[i] = v
		qnorms[i] = floats.Norm(v, 2)
	}

	indices := m.Indices()
	scores := make([]float64, len(indices))

	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	chunk := (len(indices) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(indices); start += chunk {
		lo, hi := start, min(start+chunk, len(indices))
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			for p := lo; p < hi; p++ {
				v, _ := m.Vector(indices[p])
				norm := floats.Norm(v, 2)
				var sum float64
				for q, qv := range qvecs {
					if norm == 0 || qnorms[q] == 0 {
						continue
					}
					sum += floats.Dot(v, qv) / (norm * qnorms[q])
				}
				scores[p] = sum
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]float64, len(indices))
	for p, idx := range indices {
		out[idx] = scores[p]
	}
	return out, nil
}

type modelKey struct{}

// WithModel 把本次预测使用的模型放入 ctx，供 SimilarNode 读取。
func WithModel(ctx context.Context, m *model.Model) context.Context {
	return context.WithValue(ctx, modelKey{}, m)
}

// ModelFrom 读取 WithModel 放入的模型。
func ModelFrom(ctx context.Context) (*model.Model, bool) {
	m, ok := ctx.Value(modelKey{}).(*model.Model)
	return m, ok && m != nil
}

// SimilarNode 是相似物品召回 Node：为模型中的每个物品打分，输出全部候选（尚未过滤、排序）。
//
// 查询物品取自 rctx.QueryItems（由 engine 翻译）；模型优先取 Model 字段，否则取 ctx 中 WithModel 放入的模型。
type SimilarNode struct {
	Scorer Scorer
	Model  *model.Model
}

func (n *SimilarNode) Name() string        { return "recall.similar" }
func (n *SimilarNode) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *SimilarNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	m := n.Model
	if m == nil {
		var ok bool
		if m, ok = ModelFrom(ctx); !ok {
			return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, "recall.similar: no model in context")
		}
	}
	if rctx == nil || len(rctx.QueryItems) == 0 {
		return nil, nil
	}

	scores, err := n.Scorer.ScoreIndices(ctx, m, rctx.QueryItems)
	if err != nil {
		return nil, err
	}

	items := make([]*core.Item, 0, len(scores))
	for _, idx := range m.Indices() {
		meta, _ := m.Item(idx)
		it := core.NewItem(idx, meta.ID)
		it.Score = scores[idx]
		it.Categories = meta.Categories
		it.PutLabel(utils.LabelRecallSource, utils.Label{Value: "similar", Source: "recall"})
		items = append(items, it)
	}
	return items, nil
}
