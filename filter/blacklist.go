package filter

import (
	"context"

	"github.com/rushteam/simitem/core"
)

// DenyListFilter 是黑名单过滤器，过滤掉以下任一来源中的物品：
//   - 请求级黑名单 rctx.BlackList（已翻译为物品下标）
//   - ItemIDs：配置中的固定黑名单
//   - Store 中 Key 对应的全局黑名单（JSON 字符串数组），每个请求读取一次
type DenyListFilter struct {
	// ItemIDs 是内存中的黑名单物品 ID 列表
	ItemIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store DenyListStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string

	// static 是 Prepare 合并后的 ID 集合，仅在 Prepare 返回的副本上设置
	static map[string]struct{}
}

// DenyListStore 是黑名单存储接口。
type DenyListStore interface {
	// GetDenyList 获取黑名单物品 ID 列表
	GetDenyList(ctx context.Context, key string) ([]string, error)
}

// NewDenyListFilter 创建一个黑名单过滤器。
func NewDenyListFilter(itemIDs []string, storeAdapter *StoreAdapter, key string) *DenyListFilter {
	var store DenyListStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &DenyListFilter{
		ItemIDs: itemIDs,
		Store:   store,
		Key:     key,
	}
}

func (f *DenyListFilter) Name() string { return "filter.deny_list" }

// Prepare 合并固定黑名单与 Store 黑名单。
// Store 中 key 不存在视为空黑名单；其他读取错误直接返回。
func (f *DenyListFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	if len(f.ItemIDs) == 0 && (f.Store == nil || f.Key == "") {
		return f, nil
	}

	static := make(map[string]struct{}, len(f.ItemIDs))
	for _, id := range f.ItemIDs {
		static[id] = struct{}{}
	}
	if f.Store != nil && f.Key != "" {
		ids, err := f.Store.GetDenyList(ctx, f.Key)
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, err
		}
		for _, id := range ids {
			static[id] = struct{}{}
		}
	}
	return &DenyListFilter{static: static}, nil
}

func (f *DenyListFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx != nil && rctx.BlackList.Has(item.Index) {
		return true, nil
	}
	if _, ok := f.static[item.ID]; ok {
		return true, nil
	}
	return false, nil
}
