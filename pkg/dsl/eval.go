package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/simitem/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的候选物品表达式，使用 CEL (Common Expression Language)。
// 编译一次后可被多个请求/协程并发 Eval。
//
// 可用变量：
//   - item.id / item.score / item.categories
//   - label.<key>：候选物品上 Label 的 Value，例如 label.recall_source
//   - rctx.items（查询物品 ID）/ rctx.num / rctx.categories
//
// 示例：
//   - `item.score > 0.5`
//   - `"music" in item.categories`
//   - `item.score > 0.2 && !item.id.startsWith("ad_")`
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式，表达式必须返回布尔值。
func Compile(expr string) (*Expr, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Expr{src: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (e *Expr) String() string { return e.src }

// Eval 在候选物品上执行表达式。
func (e *Expr) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 label key 会报错，用 label.key != null 之前应先确认存在
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	categories := item.Categories
	if categories == nil {
		categories = []string{}
	}

	in := map[string]any{
		"item": map[string]any{
			"id":         item.ID,
			"score":      item.Score,
			"categories": categories,
		},
		"label": labels,
		"rctx":  map[string]any{},
	}

	if rctx != nil {
		reqCats := make([]string, 0, len(rctx.Categories))
		for c := range rctx.Categories {
			reqCats = append(reqCats, c)
		}
		items := rctx.Query.Items
		if items == nil {
			items = []string{}
		}
		in["rctx"] = map[string]any{
			"items":      items,
			"num":        rctx.Num,
			"categories": reqCats,
		}
	}
	return in
}
