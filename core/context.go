package core

import "github.com/rushteam/simitem/pkg/utils"

// Query 是一次相似物品查询。
//
// 切片字段以 nil 表示“未设置该约束”；非 nil 的空切片表示约束存在但为空集：
//   - WhiteList: []  -> 没有任何候选能通过
//   - Categories: [] -> 没有任何候选能通过
//   - BlackList: []  -> 等同于未设置
type Query struct {
	Items      []string `json:"items"`
	Num        int      `json:"num,omitempty"`
	Categories []string `json:"categories,omitempty"`
	WhiteList  []string `json:"whiteList,omitempty"`
	BlackList  []string `json:"blackList,omitempty"`

	// Filter 是可选的 CEL 表达式，作用于候选物品，例如
	// `item.score > 0.5 && "music" in item.categories`
	Filter string `json:"filter,omitempty"`
}

// IndexSet 是翻译后的物品下标集合。
type IndexSet map[int]struct{}

func (s IndexSet) Has(idx int) bool {
	_, ok := s[idx]
	return ok
}

// RecommendContext 承载一次预测的请求级状态，贯穿整个 Pipeline 透传。
// 由 engine 在进入 Pipeline 前根据 Query 与模型索引构建，之后只读。
type RecommendContext struct {
	Query Query

	// QueryItems 是翻译成功的查询物品下标
	QueryItems IndexSet

	// WhiteList / BlackList 是翻译后的白/黑名单；nil 表示未设置
	WhiteList IndexSet
	BlackList IndexSet

	// Categories 是类目约束；nil 表示未设置
	Categories map[string]struct{}

	// Num 是本次请求生效的返回条数
	Num int

	// Diagnostics 记录本次请求中被丢弃的 ID
	Diagnostics *Diagnostics

	// Labels 是请求级标签，可驱动 Pipeline 行为
	Labels map[string]utils.Label
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
