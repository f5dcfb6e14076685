package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/pipeline"
	"github.com/rushteam/simitem/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉；过滤器按顺序判定，第一个命中的记为过滤原因。
//
// 实现了 Preparer 的过滤器在每个请求开始时准备一次，准备失败会使请求失败；
// 单个物品上的判定错误只跳过该过滤器，不中断流程。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	filters := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		if p, ok := f.(Preparer); ok {
			prepared, err := p.Prepare(ctx, rctx)
			if err != nil {
				return nil, fmt.Errorf("prepare %s: %w", f.Name(), err)
			}
			f = prepared
		}
		filters = append(filters, f)
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		shouldFilter := false
		filterReason := ""

		// 依次检查每个过滤器
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				continue
			}
			if ok {
				shouldFilter = true
				filterReason = f.Name()
				break
			}
		}

		if shouldFilter {
			item.PutLabel(utils.LabelFiltered, utils.FilteredBy(filterReason))
			continue
		}

		out = append(out, item)
	}

	return out, nil
}
