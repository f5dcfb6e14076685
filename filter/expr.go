package filter

import (
	"context"
	"sync"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤候选：表达式为 false 的物品被过滤。
//
// Expr 非空时使用固定表达式，只编译一次；否则使用请求中的 Query.Filter，
// 每个请求在 Prepare 中编译一次，编译结果不跨请求保留。两者都为空时不过滤。
type ExprFilter struct {
	Expr string

	once     sync.Once
	fixed    *dsl.Expr
	fixedErr error
}

func (f *ExprFilter) Name() string { return "filter.expr" }

func (f *ExprFilter) compile(rctx *core.RecommendContext) (*dsl.Expr, error) {
	if f.Expr != "" {
		f.once.Do(func() {
			f.fixed, f.fixedErr = compileExpr(f.Expr)
		})
		return f.fixed, f.fixedErr
	}
	if rctx == nil || rctx.Query.Filter == "" {
		return nil, nil
	}
	return compileExpr(rctx.Query.Filter)
}

func compileExpr(src string) (*dsl.Expr, error) {
	e, err := dsl.Compile(src)
	if err != nil {
		return nil, core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, "filter expression: "+err.Error())
	}
	return e, nil
}

// Prepare 在处理候选前编译表达式，语法错误以 INVALID_INPUT 返回，使整个请求失败。
func (f *ExprFilter) Prepare(_ context.Context, rctx *core.RecommendContext) (Filter, error) {
	e, err := f.compile(rctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return noopFilter{}, nil
	}
	return &compiledExpr{expr: e}, nil
}

// ShouldFilter 供不经过 FilterNode 的调用方使用；请求表达式每次调用都会重新编译。
func (f *ExprFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	e, err := f.compile(rctx)
	if err != nil || e == nil {
		return false, err
	}
	return (&compiledExpr{expr: e}).ShouldFilter(ctx, rctx, item)
}

type compiledExpr struct {
	expr *dsl.Expr
}

func (c *compiledExpr) Name() string { return "filter.expr" }

func (c *compiledExpr) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	ok, err := c.expr.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type noopFilter struct{}

func (noopFilter) Name() string { return "filter.expr" }

func (noopFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return false, nil
}
