// Package modelcon 把离线模型的预测结果转换为可直接在线服务的推荐记录。
//
// 设计要点：
// - Pipeline-first: 单用户处理通过 Node 串联（Filter → Rank → ReRank），可由 YAML 描述
// - 只读查找表: 用户/物品索引与已评分集合在启动时并发加载，之后被所有 worker 共享
// - 顺序输出: 预测行按批并发处理，但始终按输入顺序写入 Sink
// - 致命错误: 格式/查找/断言错误立即中止任务，之后的行不产生输出
//
// 入口见 cmd/modelcon，任务编排见 job 包。
package modelcon
