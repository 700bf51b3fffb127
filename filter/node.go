package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该候选就会被过滤掉。
// 过滤器返回错误时整个 Node 失败（致命错误，不做跳过）。
type FilterNode struct {
	Filters  []Filter
	Observer Observer
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Candidate,
) ([]*core.Candidate, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Candidate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		shouldFilter := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name(), err)
			}
			if ok {
				shouldFilter = true
				if n.Observer != nil {
					n.Observer.Filtered(f.Name())
				}
				break
			}
		}

		if !shouldFilter {
			out = append(out, item)
		}
	}

	return out, nil
}

// Prepend 返回一个在链首加入 filters 的新 FilterNode。
func (n *FilterNode) Prepend(filters ...Filter) *FilterNode {
	all := make([]Filter, 0, len(filters)+len(n.Filters))
	all = append(all, filters...)
	all = append(all, n.Filters...)
	return &FilterNode{Filters: all, Observer: n.Observer}
}
