// Package index 加载用户/物品索引文件与已评分集合，构建只读的内存查找表。
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

const (
	userFields = 2 // index, externalId
	itemFields = 5 // index, externalId, itemTypes, startTime, endTime

	// ItemTypeSeparator 是 itemTypes 字段内部的分隔符
	ItemTypeSeparator = ","
)

// Options 控制索引加载行为。
type Options struct {
	// AllowDuplicates 为 true 时重复索引后者覆盖前者；默认遇到重复索引视为格式错误
	AllowDuplicates bool
}

// UserIndex 是内部用户索引 -> 用户条目的只读映射。
type UserIndex struct {
	entries map[int]*core.UserEntry
}

// Lookup 按内部索引查找用户。
func (u *UserIndex) Lookup(index int) (*core.UserEntry, bool) {
	e, ok := u.entries[index]
	return e, ok
}

// Len 返回用户数。
func (u *UserIndex) Len() int { return len(u.entries) }

// ItemIndex 是内部物品索引 -> 物品条目的只读映射。
type ItemIndex struct {
	entries map[int]*core.ItemEntry
}

// Lookup 按内部索引查找物品。
func (m *ItemIndex) Lookup(index int) (*core.ItemEntry, bool) {
	e, ok := m.entries[index]
	return e, ok
}

// Contains 判断物品是否有效（存在于索引表）。
func (m *ItemIndex) Contains(index int) bool {
	_, ok := m.entries[index]
	return ok
}

// Len 返回物品数。
func (m *ItemIndex) Len() int { return len(m.entries) }

// NewUserIndex 由条目构建用户索引，主要用于测试与嵌入场景。
func NewUserIndex(entries ...core.UserEntry) *UserIndex {
	u := &UserIndex{entries: make(map[int]*core.UserEntry, len(entries))}
	for i := range entries {
		e := entries[i]
		u.entries[e.Index] = &e
	}
	return u
}

// NewItemIndex 由条目构建物品索引，主要用于测试与嵌入场景。
func NewItemIndex(entries ...core.ItemEntry) *ItemIndex {
	m := &ItemIndex{entries: make(map[int]*core.ItemEntry, len(entries))}
	for i := range entries {
		e := entries[i]
		m.entries[e.Index] = &e
	}
	return m
}

// LoadUsers 从 TSV 文件加载用户索引：index<TAB>externalId。
func LoadUsers(ctx context.Context, path string, opts Options) (*UserIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users index: %w", err)
	}
	defer f.Close()
	return ParseUsers(ctx, f, path, opts)
}

// ParseUsers 从 r 解析用户索引；source 仅用于错误信息。
func ParseUsers(ctx context.Context, r io.Reader, source string, opts Options) (*UserIndex, error) {
	u := &UserIndex{entries: make(map[int]*core.UserEntry)}
	err := textio.ForEachLine(ctx, r, func(lineNo int, line string) error {
		fields := strings.Split(line, "\t")
		index, err := parseIndexFields(fields, userFields, line)
		if err != nil {
			return core.WithPosition(err, source, lineNo)
		}
		if _, dup := u.entries[index]; dup && !opts.AllowDuplicates {
			return core.WithPosition(duplicateError(index, line), source, lineNo)
		}
		u.entries[index] = &core.UserEntry{Index: index, ID: fields[1]}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// LoadItems 从 TSV 文件加载物品索引：
// index<TAB>externalId<TAB>itemTypes<TAB>startTime<TAB>endTime。
func LoadItems(ctx context.Context, path string, opts Options) (*ItemIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open items index: %w", err)
	}
	defer f.Close()
	return ParseItems(ctx, f, path, opts)
}

// ParseItems 从 r 解析物品索引；source 仅用于错误信息。
func ParseItems(ctx context.Context, r io.Reader, source string, opts Options) (*ItemIndex, error) {
	m := &ItemIndex{entries: make(map[int]*core.ItemEntry)}
	err := textio.ForEachLine(ctx, r, func(lineNo int, line string) error {
		fields := strings.Split(line, "\t")
		index, err := parseIndexFields(fields, itemFields, line)
		if err != nil {
			return core.WithPosition(err, source, lineNo)
		}
		if _, dup := m.entries[index]; dup && !opts.AllowDuplicates {
			return core.WithPosition(duplicateError(index, line), source, lineNo)
		}
		m.entries[index] = &core.ItemEntry{
			Index:     index,
			ID:        fields[1],
			Types:     SplitItemTypes(fields[2]),
			StartTime: fields[3],
			EndTime:   fields[4],
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SplitItemTypes 拆分 itemTypes 字段，忽略空段。
func SplitItemTypes(s string) []string {
	parts := strings.Split(s, ItemTypeSeparator)
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			types = append(types, p)
		}
	}
	return types
}

func parseIndexFields(fields []string, want int, line string) (int, error) {
	if len(fields) < want {
		return 0, core.NewParseError(core.ModuleIndex, line,
			fmt.Sprintf("expected %d tab-separated fields, got %d", want, len(fields)), nil)
	}
	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, core.NewParseError(core.ModuleIndex, line, "index is not an integer", err)
	}
	return index, nil
}

func duplicateError(index int, line string) error {
	return core.NewParseError(core.ModuleIndex, line, fmt.Sprintf("duplicate index %d", index), nil)
}
