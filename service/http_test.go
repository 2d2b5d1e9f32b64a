package service

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Recommender, *httptest.Server) {
	t.Helper()
	rec := newTestRecommender(t, testOptions())
	srv := httptest.NewServer(NewHandler(rec, HTTPOptions{RequiredSeeds: 3, MaxTopN: 50}))
	t.Cleanup(srv.Close)
	return rec, srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHTTP_Recommend(t *testing.T) {
	_, srv := newTestServer(t)

	var resp recommendResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations", map[string]any{
		"algorithm": "content",
		"movies":    []string{"Alpha (1995)", "alpha", "Charlie (2001)"},
		"top_n":     2,
	}, &resp)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "content", resp.Algorithm)
	require.Len(t, resp.Seeds, 3)
	assert.Equal(t, "Alpha (1995)", resp.Seeds[1].Title)

	require.Len(t, resp.Recommendations, 2)
	first := resp.Recommendations[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "Bravo (1995)", first.Title)
	assert.InDelta(t, 2.0, first.Score, 1e-9)
	assert.True(t, strings.HasPrefix(first.TrailerURL, "https://www.youtube.com/results?search_query=Bravo"))
	assert.Equal(t, []string{"content"}, first.Labels["recall_source"])
}

func TestHTTP_RecommendErrors(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "unknown title",
			body:   map[string]any{"algorithm": "content", "movies": []string{"NotAMovie (1900)", "Alpha (1995)", "Bravo (1995)"}},
			status: http.StatusNotFound,
			code:   "UNKNOWN_TITLE",
		},
		{
			name:   "two movies",
			body:   map[string]any{"algorithm": "content", "movies": []string{"Alpha (1995)", "Bravo (1995)"}},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "empty title",
			body:   map[string]any{"algorithm": "content", "movies": []string{"Alpha (1995)", "", "Bravo (1995)"}},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "unknown algorithm",
			body:   map[string]any{"algorithm": "popularity", "movies": []string{"Alpha (1995)", "Bravo (1995)", "Charlie (2001)"}},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "top_n too large",
			body:   map[string]any{"algorithm": "content", "movies": []string{"Alpha (1995)", "Bravo (1995)", "Charlie (2001)"}, "top_n": 51},
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
		{
			name:   "malformed json",
			body:   "{",
			status: http.StatusBadRequest,
			code:   "INVALID_INPUT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations", tt.body, &resp)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestHTTP_Catalog(t *testing.T) {
	_, srv := newTestServer(t)

	var titles struct {
		Total  int      `json:"total"`
		Titles []string `json:"titles"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/v1/titles?offset=1&limit=2", nil, &titles))
	assert.Equal(t, 7, titles.Total)
	assert.Equal(t, []string{"Bravo (1995)", "Charlie (2001)"}, titles.Titles)

	var genres struct {
		Genres []string `json:"genres"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/v1/genres", nil, &genres))
	assert.Equal(t, []string{"Action", "Comedy", "Documentary"}, genres.Genres)

	var years struct {
		Years []int `json:"years"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/v1/years", nil, &years))
	assert.Equal(t, []int{2012, 2010, 2003, 2001, 1995}, years.Years)

	var search struct {
		Movies []movieView `json:"movies"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/v1/movies/search?genre=Comedy&year=1995", nil, &search))
	require.Len(t, search.Movies, 2)
	assert.Equal(t, "Alpha (1995)", search.Movies[0].Title)
	assert.Equal(t, []string{"Comedy"}, search.Movies[0].Genres)

	var errResp errorResponse
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/v1/movies/search?expr=not+a+predicate", nil, &errResp))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, srv.URL+"/api/v1/titles?limit=abc", nil, &errResp))
}

func TestHTTP_Health(t *testing.T) {
	rec, srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, http.MethodGet, srv.URL+"/readyz", nil, nil))

	require.NoError(t, rec.Warm(context.Background()))
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/readyz", nil, nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
