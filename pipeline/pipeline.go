package pipeline

import (
	"context"

	"github.com/rushteam/simitem/core"
)

// Pipeline 把一次预测拆成可组合的 Node 链：召回打分 -> 过滤 -> Top-N。
// 每个 Node 的输出是下一个 Node 的输入；任一 Node 出错则整条链失败。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
