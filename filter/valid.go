package filter

import (
	"context"

	"github.com/rushteam/modelcon/core"
)

// ValidFilter 过滤掉物品索引表中不存在的物品（未知或已下架）。
type ValidFilter struct {
	Items   ItemLookup
	Enabled bool
}

// NewValidFilter 创建有效性过滤器，默认开启。
func NewValidFilter(items ItemLookup) *ValidFilter {
	return &ValidFilter{Items: items, Enabled: true}
}

func (f *ValidFilter) Name() string {
	return "filter.valid"
}

func (f *ValidFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Candidate,
) (bool, error) {
	if !f.Enabled {
		return false, nil
	}
	if f.Items == nil {
		return true, nil
	}
	_, ok := f.Items.Lookup(item.Index)
	return !ok, nil
}
