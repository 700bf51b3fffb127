package pipeline

import (
	"context"

	"github.com/rushteam/modelcon/core"
)

// Pipeline 把单个用户的候选处理拆成可组合的 Node 链：过滤 -> 排序 -> 截断。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Candidate,
) ([]*core.Candidate, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Prepend 在链首插入 Node，返回新的 Pipeline。
func (p *Pipeline) Prepend(nodes ...Node) *Pipeline {
	out := make([]Node, 0, len(nodes)+len(p.Nodes))
	out = append(out, nodes...)
	out = append(out, p.Nodes...)
	return &Pipeline{Nodes: out}
}

// Names 返回各 Node 名称，用于日志。
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		names[i] = n.Name()
	}
	return names
}
