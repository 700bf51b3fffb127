// Package rank 对候选按分数排序。
package rank

import (
	"context"
	"sort"

	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/pipeline"
)

// ScoreNode 按分数降序排序候选。
// 分数相同的候选保持其在预测串中的原始顺序（Order 升序），结果与 worker 调度无关。
type ScoreNode struct{}

func (n *ScoreNode) Name() string        { return "rank.score" }
func (n *ScoreNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ScoreNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Candidate,
) ([]*core.Candidate, error) {
	if len(items) < 2 {
		return items, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Order < items[j].Order
	})
	return items, nil
}
