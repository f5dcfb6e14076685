// Package simitem 是基于隐式反馈（浏览）的相似物品推荐。
//
// 设计要点：
// - 训练：浏览事件 -> 偏好三元组 (user, item, count) -> 隐式 ALS 矩阵分解 -> 不可变模型
// - 预测：Pipeline 串联 Node（相似度打分 → 过滤 → Top-N），模型只读、可并发共享
// - 诊断旁路：无法翻译的 ID 只记录 Diagnostics，不影响结果与控制流
//
// 典型用法：
//
//	m, err := simitem.NewTrainer().Train(ctx, engine.TrainingData{Items: catalog, ViewEvents: events}, engine.DefaultTrainConfig())
//	res, err := simitem.NewPredictor().Predict(ctx, m, core.Query{Items: []string{"i1"}, Num: 10})
package simitem

import (
	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/engine"
	"github.com/rushteam/simitem/model"
	"github.com/rushteam/simitem/pipeline"
)

// 轻量 facade：便于用户直接 import "simitem" 使用核心抽象。
type (
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind

	Model           = model.Model
	Query           = core.Query
	PredictedResult = core.PredictedResult
	Trainer         = engine.Trainer
	Predictor       = engine.Predictor
)

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)

// NewTrainer 返回使用默认 ALS 求解器的 Trainer。
func NewTrainer() *engine.Trainer {
	return &engine.Trainer{}
}

// NewPredictor 返回使用默认配置与默认 Pipeline 的 Predictor。
func NewPredictor() *engine.Predictor {
	return engine.NewPredictor(engine.DefaultPredictConfigValues(), nil)
}
