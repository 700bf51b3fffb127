package core

// RankedItem 是最终推荐列表中的一项（外部 ID 空间）。
type RankedItem struct {
	ItemID string   `json:"iid"`
	Score  float64  `json:"score"`
	Types  []string `json:"itypes"`
}

// Recommendation 是本任务唯一对外持久化的产物：一个用户的有序推荐列表。
// Items 按 Score 降序；构造后不再修改。
type Recommendation struct {
	UserID   string       `json:"uid"`
	Items    []RankedItem `json:"items"`
	AppID    int          `json:"appid"`
	AlgoID   int          `json:"algoid"`
	ModelSet bool         `json:"modelset"`

	// Training 为 true 表示离线评估模式，写入独立的评估存储
	Training bool `json:"training,omitempty"`
}

// ItemIDs 返回按顺序排列的外部物品 ID。
func (r *Recommendation) ItemIDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ItemID
	}
	return ids
}

// Scores 返回按顺序排列的分数。
func (r *Recommendation) Scores() []float64 {
	scores := make([]float64, len(r.Items))
	for i, it := range r.Items {
		scores[i] = it.Score
	}
	return scores
}
