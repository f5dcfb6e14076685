package feast

import (
	"context"
	"fmt"
	"io"
	"strings"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/rushteam/simitem/core"
)

// CatalogLoader 从 Feast 读取物品类目，组装训练所需的物品目录。
//
// 类目特征可以是字符串列表，也可以是以 Separator 分隔的字符串。
// 特征缺失或为空的物品视为没有类目信息（Categories 为 nil）。
type CatalogLoader struct {
	Fetcher RowFetcher
	Project string

	// EntityKey 是物品实体列名，默认 "item_id"
	EntityKey string

	// CategoriesFeature 是类目特征引用，例如 "item_attrs:categories"
	CategoriesFeature string

	// Separator 默认 ","
	Separator string

	// BatchSize 单次请求的物品数，默认 500
	BatchSize int
}

func (l *CatalogLoader) entityKey() string {
	if l.EntityKey == "" {
		return "item_id"
	}
	return l.EntityKey
}

// Close 关闭 Fetcher 持有的连接（如果 Fetcher 实现了 io.Closer）。
func (l *CatalogLoader) Close() error {
	if c, ok := l.Fetcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Load 按 ids 的顺序返回物品目录。
func (l *CatalogLoader) Load(ctx context.Context, ids []string) ([]core.CatalogItem, error) {
	if l.Fetcher == nil {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "feast: fetcher is nil")
	}
	if l.CategoriesFeature == "" {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "feast: categories feature is required")
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = 500
	}
	sep := l.Separator
	if sep == "" {
		sep = ","
	}
	features := []string{l.CategoriesFeature}
	key := l.entityKey()

	out := make([]core.CatalogItem, 0, len(ids))
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		entities := make([]feastsdk.Row, 0, end-start)
		for _, id := range ids[start:end] {
			entities = append(entities, feastsdk.Row{key: feastsdk.StrVal(id)})
		}

		rows, err := l.Fetcher.FetchRows(ctx, l.Project, features, entities)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeUnavailable, err.Error())
		}
		if len(rows) != len(entities) {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInternalError,
				fmt.Sprintf("feast: response row count mismatch: expected %d, got %d", len(entities), len(rows)))
		}

		for i, id := range ids[start:end] {
			out = append(out, core.CatalogItem{
				ID:         id,
				Categories: categories(rows[i], l.CategoriesFeature, sep),
			})
		}
	}
	return out, nil
}

func categories(row feastsdk.Row, feature, sep string) []string {
	val, ok := row[feature]
	if !ok || val == nil {
		return nil
	}
	if list := val.GetStringListVal().GetVal(); len(list) > 0 {
		return append([]string(nil), list...)
	}
	raw := val.GetStringVal()
	if raw == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(raw, sep) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
