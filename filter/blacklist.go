package filter

import (
	"context"

	"github.com/rushteam/cinesuggest/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的电影。
type BlacklistFilter struct {
	// MovieIDs 是内存中的黑名单电影 ID
	MovieIDs map[int64]struct{}

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取黑名单电影 ID 列表
	GetBlacklist(ctx context.Context, key string) ([]int64, error)
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(ids []int64, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var store BlacklistStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &BlacklistFilter{
		MovieIDs: set,
		Store:    store,
		Key:      key,
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	if _, ok := f.MovieIDs[item.ID]; ok {
		return true, nil
	}

	if f.Store != nil && f.Key != "" {
		m := f.stored(ctx, rctx)
		if m.err != nil {
			return false, m.err
		}
		_, ok := m.ids[item.ID]
		return ok, nil
	}

	return false, nil
}

// blacklistMemo 是一次请求内读到的 Store 黑名单，读取失败同样缓存。
type blacklistMemo struct {
	ids map[int64]struct{}
	err error
}

// stored 返回 Store 中的黑名单，每个请求只读取一次，结果缓存在 rctx.Params。
// rctx 为 nil 时每次都读取。
func (f *BlacklistFilter) stored(ctx context.Context, rctx *core.RecommendContext) *blacklistMemo {
	memoKey := f.Name() + ":" + f.Key
	if rctx != nil {
		if m, ok := rctx.Params[memoKey].(*blacklistMemo); ok {
			return m
		}
	}

	m := &blacklistMemo{}
	list, err := f.Store.GetBlacklist(ctx, f.Key)
	switch {
	case err == nil:
		m.ids = make(map[int64]struct{}, len(list))
		for _, id := range list {
			m.ids[id] = struct{}{}
		}
	case !core.IsStoreNotFound(err):
		m.err = err
	}

	if rctx != nil {
		if rctx.Params == nil {
			rctx.Params = make(map[string]any)
		}
		rctx.Params[memoKey] = m
	}
	return m
}
