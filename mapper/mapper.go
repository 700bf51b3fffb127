// Package mapper 把内部索引空间的排序结果映射回外部 ID，组装最终的推荐记录。
package mapper

import (
	"fmt"
	"strconv"

	"github.com/rushteam/modelcon/core"
)

// UserLookup 按内部索引查找用户（index.UserIndex 实现此接口）。
type UserLookup interface {
	Lookup(index int) (*core.UserEntry, bool)
}

// ItemLookup 按内部索引查找物品（index.ItemIndex 实现此接口）。
type ItemLookup interface {
	Lookup(index int) (*core.ItemEntry, bool)
}

// Tags 是写在每条记录上的任务标识。
type Tags struct {
	AppID    int
	AlgoID   int
	ModelSet bool
	Training bool
}

// Mapper 组装 core.Recommendation。只读共享，可并发使用。
type Mapper struct {
	Users UserLookup
	Items ItemLookup
	Tags  Tags
}

// New 创建 Mapper。
func New(users UserLookup, items ItemLookup, tags Tags) *Mapper {
	return &Mapper{Users: users, Items: items, Tags: tags}
}

// Map 把一个用户的最终候选列表映射为推荐记录。
// 用户不在索引表中返回查找错误；候选物品必须已通过有效性过滤。
func (m *Mapper) Map(userIndex int, ranked []*core.Candidate) (*core.Recommendation, error) {
	user, ok := m.Users.Lookup(userIndex)
	if !ok {
		return nil, core.NewLookupError(core.ModuleMapper, strconv.Itoa(userIndex),
			fmt.Sprintf("user index %d not found in users index", userIndex))
	}

	items := make([]core.RankedItem, 0, len(ranked))
	for _, c := range ranked {
		entry, ok := m.Items.Lookup(c.Index)
		if !ok {
			return nil, core.NewLookupError(core.ModuleMapper, strconv.Itoa(c.Index),
				fmt.Sprintf("item index %d not found in items index", c.Index))
		}
		types := entry.Types
		if types == nil {
			types = []string{}
		}
		items = append(items, core.RankedItem{
			ItemID: entry.ID,
			Score:  c.Score,
			Types:  types,
		})
	}

	return &core.Recommendation{
		UserID:   user.ID,
		Items:    items,
		AppID:    m.Tags.AppID,
		AlgoID:   m.Tags.AlgoID,
		ModelSet: m.Tags.ModelSet,
		Training: m.Tags.Training,
	}, nil
}
