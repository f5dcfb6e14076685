package rerank

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/pkg/utils"
)

func scored(id string, score float64) *core.Item {
	it := core.NewItem(0, id)
	it.Score = score
	return it
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTopN(t *testing.T) {
	base := func() []*core.Item {
		return []*core.Item{
			scored("a", 0.1),
			scored("b", 0.9),
			scored("c", 0.5),
			scored("d", 0.7),
			scored("e", -0.3),
		}
	}

	tests := []struct {
		name  string
		items []*core.Item
		n     int
		want  []string
	}{
		{name: "top 2", items: base(), n: 2, want: []string{"b", "d"}},
		{name: "top 3", items: base(), n: 3, want: []string{"b", "d", "c"}},
		{name: "n larger than input", items: base(), n: 10, want: []string{"b", "d", "c", "a", "e"}},
		{name: "n equals input", items: base(), n: 5, want: []string{"b", "d", "c", "a", "e"}},
		{name: "zero n", items: base(), n: 0, want: []string{}},
		{name: "negative n", items: base(), n: -1, want: []string{}},
		{name: "empty input", items: nil, n: 3, want: []string{}},
		{
			name:  "ties broken by id ascending",
			items: []*core.Item{scored("z", 1), scored("x", 1), scored("y", 1), scored("w", 0.5)},
			n:     2,
			want:  []string{"x", "y"},
		},
		{
			name:  "nil items skipped",
			items: []*core.Item{nil, scored("a", 1), nil},
			n:     2,
			want:  []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(TopN(tt.items, tt.n))
			if !equalIDs(got, tt.want) {
				t.Errorf("TopN() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TopN 的结果必须与完整排序后取前 n 个一致。
func TestTopN_MatchesFullSort(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 20; round++ {
		size := 1 + r.IntN(200)
		items := make([]*core.Item, size)
		for i := range items {
			// 分数取少量离散值，制造大量并列
			items[i] = scored(string(rune('A'+i%26))+string(rune('a'+i/26)), float64(r.IntN(7))/3)
		}
		n := 1 + r.IntN(size+5)

		sorted := append([]*core.Item(nil), items...)
		sort.Slice(sorted, func(i, j int) bool { return Less(sorted[j], sorted[i]) })
		if n < len(sorted) {
			sorted = sorted[:n]
		}

		got := TopN(items, n)
		if !equalIDs(ids(got), ids(sorted)) {
			t.Fatalf("round %d: TopN(n=%d) = %v, want %v", round, n, ids(got), ids(sorted))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Fatalf("round %d: not descending at %d", round, i)
			}
		}
	}
}

func TestTopNNode_Process(t *testing.T) {
	items := func() []*core.Item {
		return []*core.Item{scored("a", 0.1), scored("b", 0.9), scored("c", 0.5)}
	}

	tests := []struct {
		name string
		node *TopNNode
		rctx *core.RecommendContext
		want []string
	}{
		{name: "request num wins", node: &TopNNode{N: 3}, rctx: &core.RecommendContext{Num: 1}, want: []string{"b"}},
		{name: "node N as fallback", node: &TopNNode{N: 2}, rctx: &core.RecommendContext{}, want: []string{"b", "c"}},
		{name: "nil context", node: &TopNNode{N: 2}, rctx: nil, want: []string{"b", "c"}},
		{name: "no limit", node: &TopNNode{}, rctx: &core.RecommendContext{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.node.Process(context.Background(), tt.rctx, items())
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(out); !equalIDs(got, tt.want) {
				t.Fatalf("Process() = %v, want %v", got, tt.want)
			}
			for i, it := range out {
				lbl, ok := it.Labels[utils.LabelRank]
				if !ok || lbl.Value != string(rune('1'+i)) {
					t.Errorf("item %s rank label = %+v", it.ID, lbl)
				}
			}
		})
	}
}
