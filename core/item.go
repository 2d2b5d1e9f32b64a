package core

import "github.com/rushteam/cinesuggest/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选电影、分数、标签。
// Labels 用于解释（召回来源、冷启动回退等）；Score 用于排序决策。
type Item struct {
	ID     int64
	Title  string
	Score  float64
	Labels map[string]utils.Label
}

// NewItem 创建一个候选物品。Labels 在首次 PutLabel 时才分配，
// 召回阶段会为整个目录生成候选，避免每个候选都分配 map。
func NewItem(id int64, title string) *Item {
	return &Item{ID: id, Title: title}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 获取 Label。
func (it *Item) GetLabel(key string) (utils.Label, bool) {
	if it.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}
