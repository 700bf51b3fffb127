package core

import (
	"strconv"
	"strings"
)

// UserEntry 是用户索引表的一行：内部整数索引 -> 外部用户 ID。
type UserEntry struct {
	Index int
	ID    string
}

// ItemEntry 是物品索引表的一行。
// 物品存在于索引表本身即代表该物品有效。
type ItemEntry struct {
	Index     int
	ID        string
	Types     []string
	StartTime string
	EndTime   string
}

// StartUnix 返回数值形式的开始时间；非数值（如空串）时 ok 为 false。
func (e *ItemEntry) StartUnix() (int64, bool) {
	return parseUnix(e.StartTime)
}

// EndUnix 返回数值形式的结束时间；非数值（如空串）时 ok 为 false。
func (e *ItemEntry) EndUnix() (int64, bool) {
	return parseUnix(e.EndTime)
}

func parseUnix(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Candidate 是推荐链路中的候选物品（内部索引空间）。
// Order 记录其在预测串中的原始位置，排序时用于稳定的并列处理。
type Candidate struct {
	Index int
	Score float64
	Order int
}

// Prediction 是预测文件中一行的解析结果。
// Candidates 的顺序仅代表原始出现顺序，没有语义。
type Prediction struct {
	UserIndex  int
	Candidates []*Candidate
}
