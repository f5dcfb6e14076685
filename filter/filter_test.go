package filter

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/pkg/utils"
	"github.com/rushteam/simitem/store"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(i, id)
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func set(idx ...int) core.IndexSet {
	s := make(core.IndexSet, len(idx))
	for _, i := range idx {
		s[i] = struct{}{}
	}
	return s
}

func TestListFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		rctx   *core.RecommendContext
		want   []string
	}{
		{
			name:   "allow list unset",
			filter: &AllowListFilter{},
			rctx:   &core.RecommendContext{},
			want:   []string{"a", "b", "c", "d"},
		},
		{
			name:   "allow list keeps members",
			filter: &AllowListFilter{},
			rctx:   &core.RecommendContext{WhiteList: set(1, 3)},
			want:   []string{"b", "d"},
		},
		{
			name:   "empty allow list admits nothing",
			filter: &AllowListFilter{},
			rctx:   &core.RecommendContext{WhiteList: core.IndexSet{}},
			want:   []string{},
		},
		{
			name:   "deny list request level",
			filter: &DenyListFilter{},
			rctx:   &core.RecommendContext{BlackList: set(0, 2)},
			want:   []string{"b", "d"},
		},
		{
			name:   "empty deny list",
			filter: &DenyListFilter{},
			rctx:   &core.RecommendContext{BlackList: core.IndexSet{}},
			want:   []string{"a", "b", "c", "d"},
		},
		{
			name:   "query items removed",
			filter: &QueryItemFilter{},
			rctx:   &core.RecommendContext{QueryItems: set(0)},
			want:   []string{"b", "c", "d"},
		},
		{
			name:   "nil rctx keeps everything",
			filter: &QueryItemFilter{},
			want:   []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &FilterNode{Filters: []Filter{tt.filter}}
			out, err := node.Process(context.Background(), tt.rctx, items("a", "b", "c", "d"))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Process() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoryFilter(t *testing.T) {
	cands := items("a", "b", "c")
	cands[0].Categories = []string{"music"}
	cands[1].Categories = []string{"books", "music"}
	// c 没有类目

	tests := []struct {
		name       string
		categories map[string]struct{}
		want       []string
	}{
		{name: "unset", categories: nil, want: []string{"a", "b", "c"}},
		{name: "match any", categories: map[string]struct{}{"books": {}}, want: []string{"b"}},
		{name: "shared category", categories: map[string]struct{}{"music": {}}, want: []string{"a", "b"}},
		{name: "empty set admits nothing", categories: map[string]struct{}{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &CategoryFilter{}
			got := []string{}
			for _, it := range cands {
				drop, err := f.ShouldFilter(context.Background(), &core.RecommendContext{Categories: tt.categories}, it)
				if err != nil {
					t.Fatalf("ShouldFilter() error = %v", err)
				}
				if !drop {
					got = append(got, it.ID)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("kept %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterNode_Labels(t *testing.T) {
	node := &FilterNode{Filters: Defaults()}
	cands := items("a", "b", "c")
	rctx := &core.RecommendContext{QueryItems: set(0), BlackList: set(2)}

	out, err := node.Process(context.Background(), rctx, cands)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := ids(out); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("Process() = %v, want [b]", got)
	}

	// 第一个命中的过滤器记为过滤原因
	if lbl := cands[0].Labels[utils.LabelFiltered]; lbl.Source != "filter.query_item" {
		t.Errorf("a filtered by %q, want filter.query_item", lbl.Source)
	}
	if lbl := cands[2].Labels[utils.LabelFiltered]; lbl.Source != "filter.deny_list" {
		t.Errorf("c filtered by %q, want filter.deny_list", lbl.Source)
	}
	if _, ok := cands[1].Labels[utils.LabelFiltered]; ok {
		t.Error("kept item should not carry filtered label")
	}
}

type failingFilter struct{}

func (failingFilter) Name() string { return "filter.failing" }

func (failingFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

type failingPreparer struct{ failingFilter }

func (failingPreparer) Prepare(context.Context, *core.RecommendContext) (Filter, error) {
	return nil, errors.New("prepare boom")
}

func TestFilterNode_Errors(t *testing.T) {
	// 单个物品上的判定错误只跳过该过滤器
	node := &FilterNode{Filters: []Filter{failingFilter{}}}
	out, err := node.Process(context.Background(), &core.RecommendContext{}, items("a", "b"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("Process() = %v, want both items kept", ids(out))
	}

	node = &FilterNode{Filters: []Filter{failingPreparer{}}}
	if _, err := node.Process(context.Background(), &core.RecommendContext{}, items("a")); err == nil {
		t.Error("Process() with failing Prepare should fail")
	}
}

func TestDenyListFilter_Store(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	defer ms.Close()

	adapter := NewStoreAdapter(ms)
	if err := adapter.SetDenyList(ctx, "deny:global", []string{"b"}); err != nil {
		t.Fatalf("SetDenyList() error = %v", err)
	}

	tests := []struct {
		name string
		f    *DenyListFilter
		want []string
	}{
		{name: "fixed ids", f: NewDenyListFilter([]string{"a"}, nil, ""), want: []string{"b", "c"}},
		{name: "store ids", f: NewDenyListFilter(nil, adapter, "deny:global"), want: []string{"a", "c"}},
		{name: "merged", f: NewDenyListFilter([]string{"c"}, adapter, "deny:global"), want: []string{"a"}},
		{name: "missing key is empty", f: NewDenyListFilter(nil, adapter, "deny:missing"), want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &FilterNode{Filters: []Filter{tt.f}}
			out, err := node.Process(ctx, &core.RecommendContext{}, items("a", "b", "c"))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Process() = %v, want %v", got, tt.want)
			}
		})
	}

	// 值不是 JSON 数组时 Prepare 失败
	if err := ms.Set(ctx, "deny:broken", []byte("not-json")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	node := &FilterNode{Filters: []Filter{NewDenyListFilter(nil, adapter, "deny:broken")}}
	if _, err := node.Process(ctx, &core.RecommendContext{}, items("a")); err == nil {
		t.Error("Process() with broken deny list should fail")
	}
}

func TestExprFilter(t *testing.T) {
	cands := items("a", "b", "c")
	cands[0].Score = 0.9
	cands[1].Score = 0.1
	cands[2].Score = 0.5
	cands[2].Categories = []string{"music"}

	tests := []struct {
		name    string
		fixed   string
		query   string
		want    []string
		wantErr bool
	}{
		{name: "no expression", want: []string{"a", "b", "c"}},
		{name: "query expression", query: "item.score >= 0.5", want: []string{"a", "c"}},
		{name: "fixed wins over query", fixed: `"music" in item.categories`, query: "item.score > 0.0", want: []string{"c"}},
		{name: "invalid expression", query: "item.score >", wantErr: true},
		{name: "non bool expression", query: `"score"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &FilterNode{Filters: []Filter{&ExprFilter{Expr: tt.fixed}}}
			rctx := &core.RecommendContext{Query: core.Query{Filter: tt.query}}
			out, err := node.Process(context.Background(), rctx, cands)
			if tt.wantErr {
				if !core.IsInvalidInput(err) {
					t.Errorf("Process() error = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Process() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExprFilter_CompiledState(t *testing.T) {
	ctx := context.Background()

	// 请求表达式不会在过滤器上留下状态
	f := &ExprFilter{}
	for i := 0; i < 1000; i++ {
		rctx := &core.RecommendContext{Query: core.Query{Filter: fmt.Sprintf("item.score > %d.0", i)}}
		if _, err := f.Prepare(ctx, rctx); err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
	}
	if f.fixed != nil || f.fixedErr != nil {
		t.Errorf("request expressions leaked into filter state: %v, %v", f.fixed, f.fixedErr)
	}

	// 固定表达式只编译一次，请求表达式被忽略
	f = &ExprFilter{Expr: "item.score > 0.5"}
	first, err := f.Prepare(ctx, &core.RecommendContext{Query: core.Query{Filter: "item.score > 1.0"}})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	second, err := f.Prepare(ctx, &core.RecommendContext{Query: core.Query{Filter: "item.score > 2.0"}})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if first.(*compiledExpr).expr != second.(*compiledExpr).expr {
		t.Error("fixed expression should be compiled once and reused")
	}

	// 固定表达式非法时每次 Prepare 都返回同一错误
	f = &ExprFilter{Expr: "item.score >"}
	for i := 0; i < 2; i++ {
		if _, err := f.Prepare(ctx, &core.RecommendContext{}); !core.IsInvalidInput(err) {
			t.Errorf("Prepare() error = %v, want INVALID_INPUT", err)
		}
	}
}
