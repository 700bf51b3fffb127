package index

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Paths 是三个辅助输入文件的路径。
type Paths struct {
	Users   string
	Items   string
	Ratings string // 为空时不加载已评分集合
}

// Tables 汇总所有只读查找表。构建完成后不再修改，可被任意 worker 并发读取。
type Tables struct {
	Users *UserIndex
	Items *ItemIndex
	Seen  *SeenSet // 未开启 unseen 过滤时为 nil
}

// LoadTables 并发加载用户索引、物品索引与（可选的）已评分集合。
// 三个文件互不依赖；任一失败整体失败。
func LoadTables(ctx context.Context, paths Paths, opts Options) (*Tables, error) {
	var (
		t      Tables
		eg, gc = errgroup.WithContext(ctx)
	)

	eg.Go(func() error {
		users, err := LoadUsers(gc, paths.Users, opts)
		if err != nil {
			return err
		}
		t.Users = users
		return nil
	})
	eg.Go(func() error {
		items, err := LoadItems(gc, paths.Items, opts)
		if err != nil {
			return err
		}
		t.Items = items
		return nil
	})
	if paths.Ratings != "" {
		eg.Go(func() error {
			seen, err := LoadSeen(gc, paths.Ratings)
			if err != nil {
				return err
			}
			t.Seen = seen
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &t, nil
}
