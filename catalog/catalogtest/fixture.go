// Package catalogtest 提供测试用的小型目录。
package catalogtest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/catalog"
)

// 七部电影：Alpha/Bravo 是 Comedy，Charlie/Delta/Echo 是 Action。
// 用户 1-3 偏爱喜剧，用户 4-6 偏爱动作片。
// Foxtrot（Documentary）与 Golf（Comedy）没有任何评分。
const (
	Movies = `movieId,title,genres
1,Alpha (1995),Comedy
2,Bravo (1995),Comedy
3,Charlie (2001),Action
4,Delta (2001),Action
5,Echo (2003),Action
6,Foxtrot (2010),Documentary
7,Golf (2012),Comedy
`

	Ratings = `userId,movieId,rating,timestamp
1,1,5.0,100
1,2,4.5,101
1,3,1.0,102
2,1,4.5,103
2,2,5.0,104
2,4,1.5,105
3,1,5.0,106
3,2,4.0,107
3,5,1.0,108
4,3,5.0,109
4,4,4.5,110
4,5,4.0,111
4,1,1.0,112
5,3,4.5,113
5,4,5.0,114
5,5,4.5,115
5,2,1.5,116
6,3,5.0,117
6,4,4.0,118
6,5,5.0,119
`

	Tags = `userId,movieId,tag,timestamp
1,1,slapstick,200
2,2,slapstick,201
4,3,explosions,202
5,4,explosions,203
6,5,car chase,204
`
)

// 电影 ID
const (
	Alpha   int64 = 1
	Bravo   int64 = 2
	Charlie int64 = 3
	Delta   int64 = 4
	Echo    int64 = 5
	Foxtrot int64 = 6
	Golf    int64 = 7
)

// Sources 返回固定数据集的 CSV 数据源。withTags 控制是否带关键词表。
func Sources(withTags bool) catalog.Sources {
	src := catalog.Sources{
		Movies:  strings.NewReader(Movies),
		Ratings: strings.NewReader(Ratings),
	}
	if withTags {
		src.Tags = strings.NewReader(Tags)
	}
	return src
}

// Load 加载固定数据集（不带关键词）。
func Load(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(context.Background(), Sources(false))
	require.NoError(t, err)
	return c
}

// LoadWithTags 加载固定数据集（带关键词）。
func LoadWithTags(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(context.Background(), Sources(true))
	require.NoError(t, err)
	return c
}

// LoadCSV 从内联 CSV 文本加载目录。
func LoadCSV(t testing.TB, movies, ratings string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(context.Background(), catalog.Sources{
		Movies:  strings.NewReader(movies),
		Ratings: strings.NewReader(ratings),
	})
	require.NoError(t, err)
	return c
}
