// Package cinesuggest 是一个电影推荐核心：用户给出几部喜欢的电影，返回排序后的推荐标题。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → ReRank）
// - Labels-first: 召回来源、冷启动回退、种子歧义等解释信息以 Label 透传
// - Build-once: 目录与派生索引构建后只读，并发请求共享，构建失败不缓存
package cinesuggest

import (
	"github.com/rushteam/cinesuggest/pipeline"
	"github.com/rushteam/cinesuggest/service"
)

// 轻量 facade：便于直接 import 根包使用核心抽象。
type (
	Recommender = service.Recommender
	Options     = service.Options
	Pipeline    = pipeline.Pipeline
	Node        = pipeline.Node
	Kind        = pipeline.Kind
)

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)

// New 等价于 service.New。
var New = service.New
