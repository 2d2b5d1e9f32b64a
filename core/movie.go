package core

// Movie 是目录中的一部电影，加载后不可变。
type Movie struct {
	ID    int64
	Title string
	// Year 从标题中的 "(yyyy)" 解析得到，0 表示未知
	Year   int
	Genres []string
}

// HasGenre 判断电影是否带有某个类型标签（大小写敏感，与数据源一致）。
func (m Movie) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// 评分取值范围（半星步长）
const (
	MinRatingScore = 0.5
	MaxRatingScore = 5.0
)

// Rating 是一条评分事实。Score 为半星步长（0.5 - 5.0）。
type Rating struct {
	UserID    int64
	MovieID   int64
	Score     float64
	Timestamp int64
}

// ValidScore 判断分数是否落在评分范围内，NaN 视为无效。
func (r Rating) ValidScore() bool {
	return r.Score >= MinRatingScore && r.Score <= MaxRatingScore
}
