package builders

import (
	"fmt"

	"github.com/rushteam/simitem/config"
	"github.com/rushteam/simitem/filter"
	"github.com/rushteam/simitem/pipeline"
	"github.com/rushteam/simitem/pkg/conv"
	"github.com/rushteam/simitem/recall"
	"github.com/rushteam/simitem/rerank"
)

func init() {
	config.Register("recall.similar", BuildSimilarNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildSimilarNode(cfg map[string]interface{}) (pipeline.Node, error) {
	workers, err := conv.Int(cfg, "workers", 4)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	return &recall.SimilarNode{Scorer: recall.Scorer{Workers: workers}}, nil
}

// BuildFilterNode 未配置 filters 时使用 filter.Defaults()。
func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	raw, present := cfg["filters"]
	if !present {
		return &filter.FilterNode{Filters: filter.Defaults()}, nil
	}
	filtersConfig, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters must be a list")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for i, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("filters[%d]: want a map, got %T", i, fc)
		}
		f, err := buildFilter(filterMap)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		filters = append(filters, f)
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func buildFilter(cfg map[string]interface{}) (filter.Filter, error) {
	filterType, err := conv.String(cfg, "type", "")
	if err != nil {
		return nil, err
	}
	switch filterType {
	case "allow_list":
		return &filter.AllowListFilter{}, nil
	case "deny_list":
		ids, err := conv.Strings(cfg, "item_ids")
		if err != nil {
			return nil, err
		}
		key, err := conv.String(cfg, "key", "")
		if err != nil {
			return nil, err
		}
		name, err := conv.String(cfg, "store", "")
		if err != nil {
			return nil, err
		}
		var adapter *filter.StoreAdapter
		if name != "" {
			s, ok := config.LookupStore(name)
			if !ok {
				return nil, fmt.Errorf("deny_list: store %q not registered", name)
			}
			adapter = filter.NewStoreAdapter(s)
		}
		return filter.NewDenyListFilter(ids, adapter, key), nil
	case "query_item":
		return &filter.QueryItemFilter{}, nil
	case "category":
		return &filter.CategoryFilter{}, nil
	case "expr":
		expr, err := conv.String(cfg, "expr", "")
		if err != nil {
			return nil, err
		}
		return &filter.ExprFilter{Expr: expr}, nil
	default:
		return nil, fmt.Errorf("unknown filter type: %q", filterType)
	}
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n, err := conv.Int(cfg, "n", 10)
	if err != nil {
		return nil, err
	}
	return &rerank.TopNNode{N: n}, nil
}
