package rerank

import (
	"container/heap"
	"context"
	"strconv"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/pipeline"
	"github.com/rushteam/simitem/pkg/utils"
)

// Less 定义候选的排名顺序：a 排在 b 之后（更差）时返回 true。
// 分数高者在前；分数相同按物品 ID 升序，保证结果确定。
func Less(a, b *core.Item) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID > b.ID
}

// minHeap 的堆顶是当前保留的最差候选。
type minHeap []*core.Item

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return Less(h[i], h[j]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) { *h = append(*h, x.(*core.Item)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// TopN 从 items 中选出排名最高的 n 个，按排名降序返回。
//
// 使用容量为 n 的小顶堆：堆未满时直接插入；堆满时仅当候选排名严格高于堆顶才替换堆顶。
// 辅助内存 O(n)，时间 O(len(items) * log n)。n <= 0 时返回空。
func TopN(items []*core.Item, n int) []*core.Item {
	if n <= 0 || len(items) == 0 {
		return []*core.Item{}
	}

	h := make(minHeap, 0, min(n, len(items)))
	for _, it := range items {
		if it == nil {
			continue
		}
		if h.Len() < n {
			heap.Push(&h, it)
			continue
		}
		if Less(h[0], it) {
			h[0] = it
			heap.Fix(&h, 0)
		}
	}

	// 逐个弹出堆顶得到升序，再倒序写回
	out := make([]*core.Item, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(*core.Item)
	}
	return out
}

// TopNNode 是一个 Top-N 选择节点：从过滤后的候选中选出排名最高的 N 个，按分数降序输出，
// 并在每个物品上写入名次 Label（从 1 开始）。
//
// N 取值优先级：请求中的 rctx.Num > 节点配置的 N；两者都 <= 0 时返回空。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.SimilarNode{},                    // 打分
//	        &filter.FilterNode{Filters: filter.Defaults()}, // 过滤
//	        &rerank.TopNNode{N: 10},                  // 截取 Top 10
//	    },
//	}
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if rctx != nil && rctx.Num > 0 {
		limit = rctx.Num
	}

	out := TopN(items, limit)
	for i, it := range out {
		it.PutLabel(utils.LabelRank, utils.Label{Value: strconv.Itoa(i + 1), Source: "rerank"})
	}
	return out, nil
}
