package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// NoGenres 是数据源中"无类型"的占位值。
const NoGenres = "(no genres listed)"

var yearPattern = regexp.MustCompile(`\((\d{4})\)`)

// ParseYear 从标题中解析 "(yyyy)" 年份，取最后一个匹配；没有时返回 0。
func ParseYear(title string) int {
	matches := yearPattern.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return 0
	}
	y, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0
	}
	return y
}

// SplitGenres 解析 "A|B|C" 形式的类型字段。
func SplitGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == NoGenres {
		return nil
	}
	parts := strings.Split(raw, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == NoGenres {
			continue
		}
		out = append(out, p)
	}
	return out
}
