package core

import "time"

// RecommendContext 承载单个用户的处理上下文，贯穿整个 Pipeline 透传。
// 索引表是只读共享的，RecommendContext 本身每行一个，不跨 goroutine 共享。
type RecommendContext struct {
	UserIndex int

	// Now 是本次任务的统一时间基准，表达式过滤使用
	Now time.Time

	// Params 请求级参数，例如 app_id / algo_id，供表达式过滤读取
	Params map[string]any
}

// NewRecommendContext 创建用户级上下文。
func NewRecommendContext(userIndex int, now time.Time) *RecommendContext {
	return &RecommendContext{
		UserIndex: userIndex,
		Now:       now,
		Params:    make(map[string]any),
	}
}
