package filter

import (
	"context"

	"github.com/rushteam/modelcon/core"
)

// Filter 是过滤器的抽象接口，用于判断一个候选是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
// 实现必须可被多个 worker 并发调用。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断候选是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Candidate) (bool, error)
}

// Observer 接收过滤事件，用于打点。
type Observer interface {
	Filtered(filterName string)
}

// SeenChecker 判断用户是否已见过物品（index.SeenSet 实现此接口）。
type SeenChecker interface {
	Contains(userIndex, itemIndex int) bool
}

// ItemLookup 按内部索引查找物品（index.ItemIndex 实现此接口）。
type ItemLookup interface {
	Lookup(index int) (*core.ItemEntry, bool)
}
