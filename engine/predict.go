package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/simitem/config"
	_ "github.com/rushteam/simitem/config/builders"
	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/filter"
	"github.com/rushteam/simitem/model"
	"github.com/rushteam/simitem/pipeline"
	"github.com/rushteam/simitem/pkg/logging"
	"github.com/rushteam/simitem/pkg/metrics"
	"github.com/rushteam/simitem/recall"
	"github.com/rushteam/simitem/rerank"
)

// DefaultPipeline 返回默认预测链路：相似度打分 -> 过滤 -> Top-N。
func DefaultPipeline(cfg PredictConfig) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.SimilarNode{Scorer: recall.Scorer{Workers: cfg.Workers}},
			&filter.FilterNode{Filters: filter.Defaults()},
			&rerank.TopNNode{N: cfg.Num},
		},
	}
}

// Predictor 对任意模型执行相似物品查询。
// Predictor 与 Model 都是只读的，可被多个协程并发使用。
type Predictor struct {
	Pipeline *pipeline.Pipeline
	Config   PredictConfig
}

// NewPredictor 创建 Predictor；p 为 nil 时使用 DefaultPipeline。
func NewPredictor(cfg PredictConfig, p *pipeline.Pipeline) *Predictor {
	if cfg.Num <= 0 {
		cfg.Num = (&core.DefaultPredictConfig{}).DefaultNum()
	}
	if p == nil {
		p = DefaultPipeline(cfg)
	}
	return &Predictor{Pipeline: p, Config: cfg}
}

// NewPredictorFromConfig 按配置中的 pipeline 构建 Predictor。
// 配置的链路必须以 recall.similar 开始、以 rerank.topn 结束，保证结果有界且有序。
func NewPredictorFromConfig(cfg *Config) (*Predictor, error) {
	if len(cfg.Pipeline.Nodes) == 0 {
		return NewPredictor(cfg.Predict, nil), nil
	}
	if err := config.ValidatePipelineConfig(&cfg.Config); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		return nil, err
	}
	first, last := p.Nodes[0], p.Nodes[len(p.Nodes)-1]
	if first.Kind() != pipeline.KindRecall {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			fmt.Sprintf("pipeline must start with a recall node, got %s", first.Name()))
	}
	if _, ok := last.(*rerank.TopNNode); !ok {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput,
			fmt.Sprintf("pipeline must end with rerank.topn, got %s", last.Name()))
	}
	return NewPredictor(cfg.Predict, p), nil
}

// Predict 返回与 q.Items 最相似的物品，按分数降序，最多 N 条。
//
//   - 无法翻译的查询物品、白名单、黑名单条目只记录诊断，不报错
//   - 查询物品全部无法翻译时返回空结果与 nil error
//   - 只有模型为空、过滤表达式非法、内部一致性错误或 ctx 取消时返回 error
func (p *Predictor) Predict(ctx context.Context, m *model.Model, q core.Query) (res *core.PredictedResult, err error) {
	log := logging.Component("predict")
	start := time.Now()
	status := metrics.StatusOK
	defer func() {
		metrics.PredictDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			status = metrics.StatusError
			log.Warn().Err(err).Strs("items", q.Items).Msg("predict failed")
		}
		metrics.PredictRequestsTotal.WithLabelValues(status).Inc()
	}()

	if m == nil {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, "predict: model is nil")
	}
	if p.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.Timeout)
		defer cancel()
	}

	diag := core.NewDiagnostics()
	diag.MaxNotes = p.Config.MaxNotes
	rctx := p.newContext(m, q, diag)

	result := func(scores []core.ItemScore) *core.PredictedResult {
		counts := diag.Counts()
		delete(counts, core.NoteEmptyQuery)
		metrics.ObserveDrops(counts)
		return &core.PredictedResult{ItemScores: scores, Diagnostics: diag.Notes()}
	}

	if len(rctx.QueryItems) == 0 {
		diag.Record(core.NoteEmptyQuery, "", "no valid items in query")
		status = metrics.StatusEmpty
		log.Debug().Strs("items", q.Items).Msg("no valid items in query")
		return result([]core.ItemScore{}), nil
	}

	items, err := p.Pipeline.Run(recall.WithModel(ctx, m), rctx, nil)
	if err != nil {
		return nil, err
	}

	scores := make([]core.ItemScore, 0, len(items))
	for _, it := range items {
		scores = append(scores, core.ItemScore{Item: it.ID, Score: it.Score})
	}
	if len(scores) == 0 {
		status = metrics.StatusEmpty
	}
	log.Debug().
		Int("query_items", len(rctx.QueryItems)).
		Int("num", rctx.Num).
		Int("results", len(scores)).
		Msg("predicted")
	return result(scores), nil
}

// newContext 把查询中的字符串 ID 翻译为模型下标，构建请求上下文。
func (p *Predictor) newContext(m *model.Model, q core.Query, diag *core.Diagnostics) *core.RecommendContext {
	idx := m.ItemIndex()
	miss := func(kind, msg string) func(string) {
		return func(id string) { diag.Record(kind, id, msg) }
	}

	rctx := &core.RecommendContext{
		Query:       q,
		QueryItems:  idx.Translate(q.Items, miss(core.NoteUnknownQueryItem, "query item not in model")),
		WhiteList:   idx.Translate(q.WhiteList, miss(core.NoteUnknownWhiteList, "white list item not in model")),
		BlackList:   idx.Translate(q.BlackList, miss(core.NoteUnknownBlackList, "black list item not in model")),
		Num:         q.Num,
		Diagnostics: diag,
	}
	if rctx.Num <= 0 {
		rctx.Num = p.Config.DefaultNum()
	}
	if q.Categories != nil {
		rctx.Categories = make(map[string]struct{}, len(q.Categories))
		for _, c := range q.Categories {
			rctx.Categories[c] = struct{}{}
		}
	}
	return rctx
}
