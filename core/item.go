package core

import "github.com/rushteam/simitem/pkg/utils"

// Item 是预测链路中的候选物品：索引、字符串 ID、分数、类目、标签。
// Index 是物品在模型索引中的整数下标；Score 是对查询物品的聚合相似度。
// Labels 用于解释与观测（例如被哪个过滤器剔除）。
type Item struct {
	Index      int
	ID         string
	Score      float64
	Categories []string
	Labels     map[string]utils.Label
}

func NewItem(index int, id string) *Item {
	return &Item{
		Index:  index,
		ID:     id,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// CatalogItem 是训练时由外部物品目录提供的物品元数据。
// Categories 为 nil 表示没有类目信息；只要查询带类目约束，这类物品一律不返回。
type CatalogItem struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories,omitempty"`
}

// ViewEvent 是一次隐式交互（浏览），只在聚合阶段使用。
type ViewEvent struct {
	UserID string `json:"user"`
	ItemID string `json:"item"`
}

// Rating 是聚合后的隐式偏好三元组 (用户下标, 物品下标, 浏览次数)。
// Count 恒 >= 1。
type Rating struct {
	User  int
	Item  int
	Count float64
}

// ItemScore 是返回给调用方的 (物品 ID, 分数)。
type ItemScore struct {
	Item  string  `json:"item"`
	Score float64 `json:"score"`
}

// PredictedResult 是一次预测的结果：按分数降序排列的物品，以及本次调用的诊断记录。
// ItemScores 为空表示“没有结果”，与调用失败（error）是两回事。
type PredictedResult struct {
	ItemScores  []ItemScore `json:"itemScores"`
	Diagnostics []Note      `json:"-"`
}
