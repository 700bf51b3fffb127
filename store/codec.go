package store

import (
	"github.com/goccy/go-json"

	"github.com/rushteam/modelcon/core"
)

// EncodeRecommendation 把推荐记录编码为 JSON。
func EncodeRecommendation(rec *core.Recommendation) ([]byte, error) {
	return json.Marshal(rec)
}

// DecodeRecommendation 解码 EncodeRecommendation 的输出。
func DecodeRecommendation(data []byte) (*core.Recommendation, error) {
	var rec core.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
