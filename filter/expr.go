package filter

import (
	"context"

	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/pkg/dsl"
)

// ExprFilter 是表达式过滤器：对物品元数据求值 CEL 表达式，结果为 false 的候选被过滤。
// 物品不在索引表中时直接过滤（有效性过滤器通常已在前面剔除）。
type ExprFilter struct {
	Items ItemLookup
	expr  *dsl.Expr
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(items ItemLookup, expr string) (*ExprFilter, error) {
	compiled, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Items: items, expr: compiled}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Candidate,
) (bool, error) {
	if f.Items == nil {
		return true, nil
	}
	entry, ok := f.Items.Lookup(item.Index)
	if !ok {
		return true, nil
	}

	keep, err := f.expr.Evaluate(buildInput(rctx, item, entry))
	if err != nil {
		return false, core.NewAssertionError(core.ModuleFilter, f.expr.String(), "item filter expression failed", err)
	}
	return !keep, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(rctx *core.RecommendContext, item *core.Candidate, entry *core.ItemEntry) map[string]interface{} {
	start, hasStart := entry.StartUnix()
	end, hasEnd := entry.EndUnix()
	types := entry.Types
	if types == nil {
		types = []string{}
	}

	user := map[string]interface{}{}
	params := map[string]interface{}{}
	var now int64
	if rctx != nil {
		user["index"] = int64(rctx.UserIndex)
		if rctx.Params != nil {
			params = rctx.Params
		}
		now = rctx.Now.UnixMilli()
	}

	return map[string]interface{}{
		"item": map[string]interface{}{
			"index":          int64(item.Index),
			"id":             entry.ID,
			"types":          types,
			"score":          item.Score,
			"start_time":     start,
			"end_time":       end,
			"has_start_time": hasStart,
			"has_end_time":   hasEnd,
		},
		"user":   user,
		"params": params,
		"now":    now,
	}
}
