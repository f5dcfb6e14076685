package filter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/simitem/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetDenyList 从 Store 读取黑名单，值为 JSON 字符串数组，例如 ["i1","i2"]。
func (a *StoreAdapter) GetDenyList(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode deny list %s: %w", key, err)
	}
	return ids, nil
}

// SetDenyList 把黑名单写入 Store，ttl 单位为秒。
func (a *StoreAdapter) SetDenyList(ctx context.Context, key string, ids []string, ttl ...int) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data, ttl...)
}
