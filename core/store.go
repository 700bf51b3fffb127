package core

import "context"

// Store 是 KV 存储的领域接口。
//
// 实现：
//   - store.MemoryStore 实现此接口
//   - store.RedisStore 实现此接口
//
// store.KVSink 基于 Store 把推荐结果落盘。
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入（减少网络往返）
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// RecommendationSink 是推荐结果的持久化出口。
// 每个预测行对应的 Recommendation 恰好写入一次，写入顺序与输入行顺序一致。
type RecommendationSink interface {
	Name() string
	Write(ctx context.Context, rec *Recommendation) error
	Close() error
}

// BatchSink 是可选扩展：支持按顺序批量写入的 Sink。
// recs 的顺序即输入行顺序。
type BatchSink interface {
	RecommendationSink
	WriteBatch(ctx context.Context, recs []*Recommendation) error
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
