package config

import (
	"fmt"

	"github.com/rushteam/modelcon/filter"
	"github.com/rushteam/modelcon/pipeline"
	"github.com/rushteam/modelcon/pkg/conv"
	"github.com/rushteam/modelcon/rank"
	"github.com/rushteam/modelcon/rerank"
)

// Deps 是构建 Node 所需的运行时依赖（加载完成的只读查找表）。
type Deps struct {
	Items    filter.ItemLookup
	Seen     filter.SeenChecker
	Observer filter.Observer
}

// NewNodeFactory 返回一个注册了所有内置 Node 的工厂。
func NewNodeFactory(cfg *Config, deps Deps) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	factory.Register("filter", func(c map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(cfg, deps, c)
	})
	factory.Register("rank.score", func(map[string]interface{}) (pipeline.Node, error) {
		return &rank.ScoreNode{}, nil
	})
	factory.Register("rerank.topn", func(c map[string]interface{}) (pipeline.Node, error) {
		return &rerank.TopNNode{N: int(conv.ConfigGetInt64(c, "n", int64(cfg.NumRecommendations)))}, nil
	})

	return factory
}

// BuildPipeline 构建单用户处理链路。
//
// 未配置描述文件时使用默认链路：filter(valid, unseen[, expr]) -> rank.score -> rerank.topn。
// 配置了描述文件时按文件构建，再由 enforce 补上有效性/已评分过滤与数量截断。
func BuildPipeline(cfg *Config, deps Deps) (*pipeline.Pipeline, error) {
	factory := NewNodeFactory(cfg, deps)

	if cfg.Pipeline.File == "" {
		filterNode, err := buildFilterNode(cfg, deps, nil)
		if err != nil {
			return nil, err
		}
		return &pipeline.Pipeline{Nodes: []pipeline.Node{
			filterNode,
			&rank.ScoreNode{},
			&rerank.TopNNode{N: cfg.NumRecommendations},
		}}, nil
	}

	desc, err := pipeline.LoadFromYAML(cfg.Pipeline.File)
	if err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", cfg.Pipeline.File, err)
	}
	p, err := desc.BuildPipeline(factory)
	if err != nil {
		return nil, err
	}
	if err := checkStages(p); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", cfg.Pipeline.File, err)
	}
	return enforce(cfg, deps, p), nil
}

// enforce 给描述文件构建的链路补上任务级约束，与描述文件内容无关：
// 链首是有效性过滤（以及开启时的已评分过滤），链尾按 NumRecommendations 截断。
func enforce(cfg *Config, deps Deps, p *pipeline.Pipeline) *pipeline.Pipeline {
	guard := &filter.FilterNode{
		Filters:  []filter.Filter{filter.NewValidFilter(deps.Items)},
		Observer: deps.Observer,
	}
	if cfg.UnseenOnly {
		guard.Filters = append(guard.Filters, filter.NewUnseenFilter(deps.Seen, true))
	}
	p = p.Prepend(guard)
	if cfg.NumRecommendations > 0 {
		p.Nodes = append(p.Nodes, &rerank.TopNNode{N: cfg.NumRecommendations})
	}
	return p
}

// checkStages 要求排序节点存在，且所有截断节点都在排序之后。
func checkStages(p *pipeline.Pipeline) error {
	ranked := false
	for _, n := range p.Nodes {
		switch n.Kind() {
		case pipeline.KindRank:
			ranked = true
		case pipeline.KindReRank:
			if !ranked {
				return fmt.Errorf("%s must come after a rank node", n.Name())
			}
		}
	}
	if !ranked {
		return fmt.Errorf("no rank node configured")
	}
	return nil
}

// buildFilterNode 构建过滤 Node。config 为 nil 时使用默认过滤器组合。
//
//	filters:
//	  - type: valid
//	  - type: unseen
//	  - type: expr
//	    expr: "item.score > 0"
func buildFilterNode(cfg *Config, deps Deps, c map[string]interface{}) (pipeline.Node, error) {
	node := &filter.FilterNode{Observer: deps.Observer}

	if c == nil {
		node.Filters = append(node.Filters,
			filter.NewValidFilter(deps.Items),
			filter.NewUnseenFilter(deps.Seen, cfg.UnseenOnly),
		)
		if cfg.Pipeline.ItemFilter != "" {
			f, err := filter.NewExprFilter(deps.Items, cfg.Pipeline.ItemFilter)
			if err != nil {
				return nil, fmt.Errorf("item filter: %w", err)
			}
			node.Filters = append(node.Filters, f)
		}
		return node, nil
	}

	filtersConfig, ok := c["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "valid":
			node.Filters = append(node.Filters, filter.NewValidFilter(deps.Items))
		case "unseen":
			node.Filters = append(node.Filters, filter.NewUnseenFilter(deps.Seen, cfg.UnseenOnly))
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter requires an expression")
			}
			f, err := filter.NewExprFilter(deps.Items, expr)
			if err != nil {
				return nil, fmt.Errorf("expr filter: %w", err)
			}
			node.Filters = append(node.Filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return node, nil
}
