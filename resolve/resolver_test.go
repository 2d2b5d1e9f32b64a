package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/catalog/catalogtest"
	"github.com/rushteam/cinesuggest/core"
)

const movies = `movieId,title,genres
1,"Matrix, The (1999)",Action
2,Alpha (1995),Comedy
3,Hamlet (1948),Drama
4,Hamlet (1990),Drama
5,Hamlet (1996),Drama
6,Twin (2000),Drama
7,Twin (2000),Drama
`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return New(catalogtest.LoadCSV(t, movies, "userId,movieId,rating,timestamp\n"))
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name      string
		text      string
		wantID    int64
		exact     bool
		ambiguous bool
	}{
		{"exact", "Alpha (1995)", 2, true, false},
		{"case folded", "alpha (1995)", 2, false, false},
		{"no year", "Alpha", 2, false, false},
		{"extra whitespace", "  Alpha   (1995) ", 2, false, false},
		{"leading article", "The Matrix", 1, false, false},
		{"trailing article", "matrix, the", 1, false, false},
		{"year narrows", "Hamlet (1990)", 4, true, false},
		{"year narrows folded", "hamlet (1996)", 5, false, false},
		{"ambiguous lowest id", "Hamlet", 3, false, true},
		{"unknown year falls back", "Hamlet (2020)", 3, false, true},
		{"exact duplicate titles", "Twin (2000)", 6, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.ID)
			assert.Equal(t, tt.exact, res.Exact)
			assert.Equal(t, tt.ambiguous, res.Ambiguous)
			assert.Equal(t, tt.text, res.Query)
		})
	}
}

func TestResolve_AmbiguousCandidates(t *testing.T) {
	r := newTestResolver(t)

	res, err := r.Resolve("HAMLET")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, res.Candidates)
	assert.Equal(t, "Hamlet (1948)", res.Title)
}

func TestResolve_Unknown(t *testing.T) {
	r := newTestResolver(t)

	for _, text := range []string{"NotAMovie (1900)", "", "   ", "(1999)"} {
		_, err := r.Resolve(text)
		require.Error(t, err, text)
		assert.True(t, core.IsUnknownTitle(err), text)
	}
}

func TestResolveAll(t *testing.T) {
	r := newTestResolver(t)

	got, err := r.ResolveAll([]string{"Alpha (1995)", "The Matrix", "Alpha (1995)"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{2, 1, 2}, []int64{got[0].ID, got[1].ID, got[2].ID})

	_, err = r.ResolveAll([]string{"Alpha (1995)", "NotAMovie (1900)", "Alpha (1995)"})
	assert.True(t, core.IsUnknownTitle(err))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Matrix, The (1999)", "the matrix"},
		{"Bug's Life, A (1998)", "a bug's life"},
		{"  Toy   Story  ", "toy story"},
		{"STRASSE", "strasse"},
		{"Straße", "strasse"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}
