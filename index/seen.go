package index

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/modelcon/core"
	"github.com/rushteam/modelcon/pkg/textio"
)

type pair struct {
	user int
	item int
}

// SeenSet 是用户已评分过的 (userIndex, itemIndex) 集合。
// 评分值只做格式校验，不保留。nil SeenSet 视为空集合。
type SeenSet struct {
	pairs map[pair]struct{}
}

// NewSeenSet 由 (user, item) 对构建集合，主要用于测试。
func NewSeenSet(pairs ...[2]int) *SeenSet {
	s := &SeenSet{pairs: make(map[pair]struct{}, len(pairs))}
	for _, p := range pairs {
		s.pairs[pair{user: p[0], item: p[1]}] = struct{}{}
	}
	return s
}

// Contains 判断用户是否已见过该物品。
func (s *SeenSet) Contains(userIndex, itemIndex int) bool {
	if s == nil {
		return false
	}
	_, ok := s.pairs[pair{user: userIndex, item: itemIndex}]
	return ok
}

// Len 返回集合大小。
func (s *SeenSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}

// LoadSeen 从 CSV 文件加载已评分集合：userIndex,itemIndex,rating。
func LoadSeen(ctx context.Context, path string) (*SeenSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ratings: %w", err)
	}
	defer f.Close()
	return ParseSeen(ctx, f, path)
}

// ParseSeen 从 r 解析已评分集合；source 仅用于错误信息。
func ParseSeen(ctx context.Context, r io.Reader, source string) (*SeenSet, error) {
	s := &SeenSet{pairs: make(map[pair]struct{})}
	err := textio.ForEachLine(ctx, r, func(lineNo int, line string) error {
		p, err := parseRating(line)
		if err != nil {
			return core.WithPosition(err, source, lineNo)
		}
		s.pairs[p] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseRating(line string) (pair, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return pair{}, core.NewParseError(core.ModuleSeen, line,
			fmt.Sprintf("expected 3 comma-separated fields, got %d", len(fields)), nil)
	}
	user, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return pair{}, core.NewParseError(core.ModuleSeen, line, "user index is not an integer", err)
	}
	item, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return pair{}, core.NewParseError(core.ModuleSeen, line, "item index is not an integer", err)
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
		return pair{}, core.NewParseError(core.ModuleSeen, line, "rating is not a number", err)
	}
	return pair{user: user, item: item}, nil
}
