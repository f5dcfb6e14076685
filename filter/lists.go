package filter

import (
	"context"

	"github.com/rushteam/simitem/core"
)

// AllowListFilter 是白名单过滤器：请求带白名单时，只保留白名单中的物品。
// rctx.WhiteList 为 nil 表示未设置白名单；非 nil 的空集合会过滤掉全部物品。
type AllowListFilter struct{}

func (f *AllowListFilter) Name() string { return "filter.allow_list" }

func (f *AllowListFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.WhiteList == nil {
		return false, nil
	}
	return !rctx.WhiteList.Has(item.Index), nil
}

// QueryItemFilter 过滤掉查询物品本身。
type QueryItemFilter struct{}

func (f *QueryItemFilter) Name() string { return "filter.query_item" }

func (f *QueryItemFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}
	return rctx.QueryItems.Has(item.Index), nil
}

// CategoryFilter 是类目过滤器：请求带类目约束时，
// 只保留类目非空且与约束有交集的物品；没有类目信息的物品一律过滤。
type CategoryFilter struct{}

func (f *CategoryFilter) Name() string { return "filter.category" }

func (f *CategoryFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Categories == nil {
		return false, nil
	}
	for _, c := range item.Categories {
		if _, ok := rctx.Categories[c]; ok {
			return false, nil
		}
	}
	return true, nil
}
