package core

import "github.com/rushteam/cinesuggest/pkg/utils"

// 算法族
const (
	AlgorithmContent       = "content"
	AlgorithmCollaborative = "collaborative"
)

// RecommendContext 承载一次推荐请求的输入，贯穿整个 Pipeline 透传。
// 请求期间只读共享状态；Labels/Params 是请求私有的。
type RecommendContext struct {
	// Algorithm 是算法族：content / collaborative
	Algorithm string

	// Queries 是调用方提交的原始种子标题
	Queries []string

	// Seeds 是解析后的目录 ID，顺序与 Queries 一致，允许重复
	Seeds []int64

	// SeedTitles 是种子在目录中的标题，与 Seeds 一一对应。
	// 目录中存在同名电影时，结果按标题排除它们。
	SeedTitles []string

	// TopN 是期望返回的条数
	TopN int

	// Labels 是请求级标签（例如某个种子解析存在歧义）
	Labels map[string]utils.Label

	// Params 请求级参数
	Params map[string]any
}

// IsSeed 判断 id 是否为本次请求的种子。
func (rctx *RecommendContext) IsSeed(id int64) bool {
	if rctx == nil {
		return false
	}
	for _, s := range rctx.Seeds {
		if s == id {
			return true
		}
	}
	return false
}

// IsSeedTitle 判断 title 是否与某个种子的目录标题相同。
func (rctx *RecommendContext) IsSeedTitle(title string) bool {
	if rctx == nil || title == "" {
		return false
	}
	for _, s := range rctx.SeedTitles {
		if s == title {
			return true
		}
	}
	return false
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
