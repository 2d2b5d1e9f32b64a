// Package utils 提供推荐解释用的 Label。
package utils

import "strings"

const (
	valueSep  = "|"
	sourceSep = ","
)

// Label 是附着在上下文或候选上的解释信息，例如召回来源、冷启动种子、歧义标题。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Values 返回按 '|' 拆开的全部取值。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, valueSep)
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，已存在的取值不重复追加。
// 重复的种子只记一次。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, valueSep),
		Source: appendUnique(existing.Source, incoming.Source, sourceSep),
	}
}

func appendUnique(list, v, sep string) string {
	switch {
	case v == "":
		return list
	case list == "":
		return v
	}
	for _, s := range strings.Split(list, sep) {
		if s == v {
			return list
		}
	}
	return list + sep + v
}
