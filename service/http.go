package service

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pkg/logging"
)

// HTTPOptions 是 HTTP 接口参数。
type HTTPOptions struct {
	// RequiredSeeds 每个请求必须提交的种子数
	RequiredSeeds int
	// MaxTopN 允许的最大 top_n
	MaxTopN int
	// RequestTimeout 单个推荐请求的超时，0 表示不限
	RequestTimeout time.Duration
}

const (
	defaultTitlesLimit = 100
	maxTitlesLimit     = 1000
	maxSearchLimit     = 500
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

type recommendRequest struct {
	Algorithm string   `json:"algorithm" validate:"required,oneof=content collaborative"`
	Movies    []string `json:"movies" validate:"required,dive,required"`
	TopN      int      `json:"top_n" validate:"gte=0"`
}

type seedView struct {
	Query     string `json:"query"`
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
}

type recommendationView struct {
	Rank       int                 `json:"rank"`
	ID         int64               `json:"id"`
	Title      string              `json:"title"`
	Score      float64             `json:"score"`
	TrailerURL string              `json:"trailer_url"`
	Labels     map[string][]string `json:"labels,omitempty"`
}

type recommendResponse struct {
	Algorithm       string               `json:"algorithm"`
	Seeds           []seedView           `json:"seeds"`
	Recommendations []recommendationView `json:"recommendations"`
}

type movieView struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year,omitempty"`
	Genres     []string `json:"genres"`
	TrailerURL string   `json:"trailer_url"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type handler struct {
	rec  *Recommender
	cat  *catalog.Catalog
	opts HTTPOptions
}

// NewHandler 返回 HTTP 路由：
//
//	POST /api/v1/recommendations
//	GET  /api/v1/titles?offset=&limit=
//	GET  /api/v1/movies/search?genre=&year=&rating=&expr=&limit=
//	GET  /api/v1/genres
//	GET  /api/v1/years
//	GET  /healthz, /readyz, /metrics
func NewHandler(rec *Recommender, opts HTTPOptions) http.Handler {
	if opts.RequiredSeeds <= 0 {
		opts.RequiredSeeds = 3
	}
	if opts.MaxTopN <= 0 {
		opts.MaxTopN = 100
	}
	h := &handler{rec: rec, cat: rec.Catalog(), opts: opts}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metricsMiddleware)
		r.Post("/recommendations", h.recommend)
		r.Get("/titles", h.titles)
		r.Get("/movies/search", h.search)
		r.Get("/genres", h.genres)
		r.Get("/years", h.years)
	})
	return r
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (h *handler) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "Request body must be valid JSON.")
		return
	}
	if msg := h.validateRecommend(&req); msg != "" {
		respondError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, msg)
		return
	}

	ctx := r.Context()
	if h.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.RequestTimeout)
		defer cancel()
	}

	res, err := h.rec.RecommendDetailed(ctx, req.Algorithm, req.Movies, req.TopN)
	if err != nil {
		respondError(w, HTTPStatus(err), ErrorCode(err), UserMessage(err))
		return
	}

	resp := recommendResponse{
		Algorithm:       res.Algorithm,
		Seeds:           make([]seedView, len(res.Seeds)),
		Recommendations: make([]recommendationView, len(res.Items)),
	}
	for i, s := range res.Seeds {
		resp.Seeds[i] = seedView{Query: s.Query, ID: s.ID, Title: s.Title, Ambiguous: s.Ambiguous}
	}
	for i, it := range res.Items {
		v := recommendationView{
			Rank:       i + 1,
			ID:         it.ID,
			Title:      it.Title,
			Score:      it.Score,
			TrailerURL: catalog.TrailerSearchURL(it.Title),
		}
		if len(it.Labels) > 0 {
			v.Labels = make(map[string][]string, len(it.Labels))
			for k, lbl := range it.Labels {
				v.Labels[k] = lbl.Values()
			}
		}
		resp.Recommendations[i] = v
	}
	respondJSON(w, http.StatusOK, resp)
}

// validateRecommend 返回面向用户的校验错误，通过时返回空串。
func (h *handler) validateRecommend(req *recommendRequest) string {
	v := getValidator()
	if err := v.Struct(req); err != nil {
		return validationMessage(err)
	}
	if err := v.Var(req.Movies, fmt.Sprintf("len=%d", h.opts.RequiredSeeds)); err != nil {
		return fmt.Sprintf("Please choose exactly %d movies.", h.opts.RequiredSeeds)
	}
	if err := v.Var(req.TopN, fmt.Sprintf("lte=%d", h.opts.MaxTopN)); err != nil {
		return fmt.Sprintf("top_n must be at most %d.", h.opts.MaxTopN)
	}
	return ""
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request."
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (h *handler) titles(w http.ResponseWriter, r *http.Request) {
	offset, ok1 := intParam(r, "offset", 0)
	limit, ok2 := intParam(r, "limit", defaultTitlesLimit)
	if !ok1 || !ok2 || offset < 0 || limit <= 0 {
		respondError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "offset and limit must be non-negative integers.")
		return
	}
	limit = min(limit, maxTitlesLimit)

	all := h.cat.Titles()
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	respondJSON(w, http.StatusOK, map[string]any{
		"total":  len(all),
		"titles": all[start:end],
	})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, ok1 := intParam(r, "year", 0)
	limit, ok2 := intParam(r, "limit", maxSearchLimit)
	var rating float64
	ok3 := true
	if s := q.Get("rating"); s != "" {
		var err error
		rating, err = strconv.ParseFloat(s, 64)
		ok3 = err == nil
	}
	if !ok1 || !ok2 || !ok3 || limit <= 0 {
		respondError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "year, rating and limit must be numbers.")
		return
	}

	movies, err := h.cat.Search(catalog.Query{
		Genre:  q.Get("genre"),
		Year:   year,
		Rating: rating,
		Expr:   q.Get("expr"),
		Limit:  min(limit, maxSearchLimit),
	})
	if err != nil {
		respondError(w, HTTPStatus(err), ErrorCode(err), "The search expression is invalid.")
		return
	}

	out := make([]movieView, len(movies))
	for i, m := range movies {
		genres := m.Genres
		if genres == nil {
			genres = []string{}
		}
		out[i] = movieView{ID: m.ID, Title: m.Title, Year: m.Year, Genres: genres, TrailerURL: catalog.TrailerSearchURL(m.Title)}
	}
	respondJSON(w, http.StatusOK, map[string]any{"movies": out})
}

func (h *handler) genres(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"genres": h.cat.Genres()})
}

func (h *handler) years(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"years": h.cat.Years()})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.rec.Ready() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "warming"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func intParam(r *http.Request, name string, def int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("write response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}
