// Package resolve 把用户输入的电影标题解析为目录 ID。
//
// 解析链：
//  1. 精确匹配（大小写敏感，对应 UI 的固定选择列表）
//  2. 归一化匹配：去掉 "(yyyy)" 年份后缀、合并空白、case-fold、
//     把 "Matrix, The" 这类后置冠词移到最前
//  3. 多个候选时：若输入带年份且有候选年份一致，先按年份收窄；
//     仍有多个时取最小 ID，并标记为歧义
package resolve

import (
	"iter"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
)

// MovieSource 是解析器所需的目录视图。
type MovieSource interface {
	AllMovies() iter.Seq[core.Movie]
}

// Resolution 是一次解析的结果。
type Resolution struct {
	// Query 原始输入
	Query string
	// ID 选中的目录 ID
	ID int64
	// Title 选中电影的目录标题
	Title string
	// Exact 是否精确命中
	Exact bool
	// Ambiguous 是否从多个候选中选择
	Ambiguous bool
	// Candidates 所有候选 ID（升序），仅在歧义时填充
	Candidates []int64
}

type candidate struct {
	id    int64
	title string
	year  int
}

// Resolver 在构造时为目录建立两级索引，之后只读，可并发使用。
type Resolver struct {
	exact      map[string][]candidate
	normalized map[string][]candidate
}

// New 为目录建立标题索引。
func New(src MovieSource) *Resolver {
	r := &Resolver{
		exact:      make(map[string][]candidate),
		normalized: make(map[string][]candidate),
	}
	// AllMovies 按 ID 升序，候选列表天然有序
	for m := range src.AllMovies() {
		c := candidate{id: m.ID, title: m.Title, year: m.Year}
		r.exact[m.Title] = append(r.exact[m.Title], c)
		key := Normalize(m.Title)
		if key != "" {
			r.normalized[key] = append(r.normalized[key], c)
		}
	}
	return r
}

// Resolve 解析一个标题，无法解析时返回 UNKNOWN_TITLE。
func (r *Resolver) Resolve(text string) (Resolution, error) {
	if cands, ok := r.exact[text]; ok {
		return pick(text, cands, true), nil
	}

	key := Normalize(text)
	cands := r.normalized[key]
	if key == "" || len(cands) == 0 {
		return Resolution{}, core.NewUnknownTitleError(text)
	}

	if year := catalog.ParseYear(text); year > 0 && len(cands) > 1 {
		sameYear := make([]candidate, 0, len(cands))
		for _, c := range cands {
			if c.year == year {
				sameYear = append(sameYear, c)
			}
		}
		if len(sameYear) > 0 {
			cands = sameYear
		}
	}
	return pick(text, cands, false), nil
}

// ResolveAll 按顺序解析多个标题，遇到第一个失败即返回。
func (r *Resolver) ResolveAll(texts []string) ([]Resolution, error) {
	out := make([]Resolution, 0, len(texts))
	for _, t := range texts {
		res, err := r.Resolve(t)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func pick(query string, cands []candidate, exact bool) Resolution {
	best := cands[0]
	res := Resolution{
		Query: query,
		ID:    best.id,
		Title: best.title,
		Exact: exact,
	}
	if len(cands) > 1 {
		res.Ambiguous = true
		res.Candidates = make([]int64, len(cands))
		for i, c := range cands {
			res.Candidates[i] = c.id
		}
		slices.Sort(res.Candidates)
	}
	return res
}

var (
	yearSuffix = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)
	articles   = []string{"the", "a", "an"}
)

// Normalize 返回标题的归一化形式，用作模糊匹配的 key。
//
//	Normalize("Matrix, The (1999)") == "the matrix"
func Normalize(title string) string {
	s := yearSuffix.ReplaceAllString(title, "")
	s = strings.Join(strings.Fields(s), " ")
	s = cases.Fold().String(s)

	for _, a := range articles {
		suffix := ", " + a
		if strings.HasSuffix(s, suffix) {
			s = a + " " + strings.TrimSuffix(s, suffix)
			break
		}
	}
	return s
}
