// Package predict 解析上游模型输出的预测文件。
//
// 行格式：userIndex<TAB>[itemIndex:score,itemIndex:score,...]
package predict

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rushteam/modelcon/core"
)

const (
	pairSeparator  = ","
	scoreSeparator = ":"
)

// ScorePair 是分数串中的一项，物品索引在此阶段仍是字符串。
type ScorePair struct {
	Item  string
	Score float64
}

// ParseScores 解析分数串：去掉首尾各一个字符后按逗号拆分，每段按第一个冒号拆成物品与分数。
// "[]" 返回空切片。分数无法解析为浮点数（或为 NaN、±Inf）时返回断言错误。
func ParseScores(raw string) ([]ScorePair, error) {
	if len(raw) < 2 {
		return nil, core.NewParseError(core.ModulePredict, raw, "score list must be wrapped in delimiters", nil)
	}
	body := raw[1 : len(raw)-1]
	if body == "" {
		return []ScorePair{}, nil
	}

	pieces := strings.Split(body, pairSeparator)
	pairs := make([]ScorePair, 0, len(pieces))
	for _, piece := range pieces {
		item, score, ok := strings.Cut(piece, scoreSeparator)
		if !ok {
			return nil, core.NewParseError(core.ModulePredict, raw,
				fmt.Sprintf("score pair %q has no ':' separator", piece), nil)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(score), 64)
		if err != nil {
			return nil, core.NewAssertionError(core.ModulePredict, raw,
				fmt.Sprintf("score %q is not a number", score), err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewAssertionError(core.ModulePredict, raw,
				fmt.Sprintf("score of item %q is not finite: %v", item, v), nil)
		}
		pairs = append(pairs, ScorePair{Item: strings.TrimSpace(item), Score: v})
	}
	return pairs, nil
}

// FormatScores 是 ParseScores 的逆操作，主要用于测试和调试输出。
func FormatScores(pairs []ScorePair) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(p.Item)
		b.WriteString(scoreSeparator)
		b.WriteString(strconv.FormatFloat(p.Score, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseLine 解析预测文件中的一行。
func ParseLine(line string) (*core.Prediction, error) {
	userField, raw, ok := strings.Cut(line, "\t")
	if !ok {
		return nil, core.NewParseError(core.ModulePredict, line, "expected userIndex<TAB>scores", nil)
	}
	userIndex, err := strconv.Atoi(strings.TrimSpace(userField))
	if err != nil {
		return nil, core.NewParseError(core.ModulePredict, line, "user index is not an integer", err)
	}

	pairs, err := ParseScores(strings.TrimSpace(raw))
	if err != nil {
		if jobErr := core.GetJobError(err); jobErr != nil {
			jobErr.Content = line
		}
		return nil, err
	}

	candidates := make([]*core.Candidate, 0, len(pairs))
	for i, p := range pairs {
		itemIndex, err := strconv.Atoi(p.Item)
		if err != nil {
			return nil, core.NewParseError(core.ModulePredict, line,
				fmt.Sprintf("item index %q is not an integer", p.Item), err)
		}
		candidates = append(candidates, &core.Candidate{Index: itemIndex, Score: p.Score, Order: i})
	}
	return &core.Prediction{UserIndex: userIndex, Candidates: candidates}, nil
}
