package filter

import (
	"context"

	"github.com/rushteam/modelcon/core"
)

// UnseenFilter 过滤掉用户已经评分过的物品。
// Enabled 为 false 时不查询 Seen，所有候选均通过。
type UnseenFilter struct {
	Seen    SeenChecker
	Enabled bool
}

// NewUnseenFilter 创建一个已评分过滤器；seen 为 nil 时等价于关闭。
func NewUnseenFilter(seen SeenChecker, enabled bool) *UnseenFilter {
	return &UnseenFilter{Seen: seen, Enabled: enabled}
}

func (f *UnseenFilter) Name() string {
	return "filter.unseen"
}

func (f *UnseenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Candidate,
) (bool, error) {
	if !f.Enabled || f.Seen == nil || rctx == nil {
		return false, nil
	}
	return f.Seen.Contains(rctx.UserIndex, item.Index), nil
}
