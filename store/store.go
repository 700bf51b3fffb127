// Package store 提供 core.Store 的实现以及推荐结果 Sink。
//
// 注意：接口定义在 core 包。
//
// 示例：
//
//	var kv core.Store = NewMemoryStore()
//	var sink core.RecommendationSink = NewKVSink(kv, "itemrec", 0)
package store
