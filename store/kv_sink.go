package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rushteam/modelcon/core"
)

// TrainingPrefix 是离线评估模式下 key 前缀的附加前缀。
const TrainingPrefix = "training_"

// KVSink 把推荐记录写入任意 core.Store（MemoryStore、RedisStore）。
//
// key 格式：{prefix}:{appid}:{algoid}:{modelset}:{uid}，评估模式下 prefix 为 training_{prefix}。
// value 为 JSON 编码的 core.Recommendation。同一用户多次写入时后者覆盖前者。
type KVSink struct {
	store  core.Store
	prefix string
	ttl    int
}

// NewKVSink 创建 KVSink；ttl 单位为秒，0 表示不过期。
func NewKVSink(s core.Store, prefix string, ttl int) *KVSink {
	if prefix == "" {
		prefix = "itemrec"
	}
	return &KVSink{store: s, prefix: prefix, ttl: ttl}
}

func (s *KVSink) Name() string { return "kv." + s.store.Name() }

// Key 返回记录对应的存储 key。
func (s *KVSink) Key(rec *core.Recommendation) string {
	prefix := s.prefix
	if rec.Training {
		prefix = TrainingPrefix + prefix
	}
	return fmt.Sprintf("%s:%d:%d:%s:%s", prefix, rec.AppID, rec.AlgoID, strconv.FormatBool(rec.ModelSet), rec.UserID)
}

func (s *KVSink) Write(ctx context.Context, rec *core.Recommendation) error {
	value, err := EncodeRecommendation(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation for %s: %w", rec.UserID, err)
	}
	return s.store.Set(ctx, s.Key(rec), value, s.ttl)
}

// WriteBatch 批量写入。recs 中同一用户出现多次时以最后一条为准。
func (s *KVSink) WriteBatch(ctx context.Context, recs []*core.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	kvs := make(map[string][]byte, len(recs))
	for _, rec := range recs {
		value, err := EncodeRecommendation(rec)
		if err != nil {
			return fmt.Errorf("encode recommendation for %s: %w", rec.UserID, err)
		}
		kvs[s.Key(rec)] = value
	}
	return s.store.BatchSet(ctx, kvs, s.ttl)
}

// Read 读取某用户的推荐记录；不存在时返回 core.ErrStoreNotFound。
func (s *KVSink) Read(ctx context.Context, appID, algoID int, modelSet, training bool, userID string) (*core.Recommendation, error) {
	key := s.Key(&core.Recommendation{UserID: userID, AppID: appID, AlgoID: algoID, ModelSet: modelSet, Training: training})
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeRecommendation(data)
}

func (s *KVSink) Close() error {
	return s.store.Close()
}

var _ core.BatchSink = (*KVSink)(nil)
