package filter

import (
	"context"

	"github.com/rushteam/simitem/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Preparer 是可选接口：需要按请求加载数据的过滤器（例如从 Store 读黑名单）
// 在 FilterNode 处理候选之前调用一次 Prepare，返回本次请求使用的过滤器。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}

// Defaults 返回默认过滤器链，按顺序判定：白名单、黑名单、查询物品自身、类目，
// 最后是请求中的 CEL 表达式（Query.Filter 为空时不生效）。
func Defaults() []Filter {
	return []Filter{
		&AllowListFilter{},
		&DenyListFilter{},
		&QueryItemFilter{},
		&CategoryFilter{},
		&ExprFilter{},
	}
}
