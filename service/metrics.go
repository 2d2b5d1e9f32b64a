package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendRequests 按算法与结果代码统计推荐请求（code 为空表示成功）
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesuggest_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"algorithm", "code"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinesuggest_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)

	AmbiguousSeeds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinesuggest_ambiguous_seeds_total",
			Help: "Total number of seed titles resolved with ambiguity",
		},
	)

	EngineBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinesuggest_engine_build_duration_seconds",
			Help:    "Duration of engine warm-up in seconds",
			Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"algorithm", "status"},
	)

	EngineReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinesuggest_engine_ready",
			Help: "Whether the engine for an algorithm has finished building (1) or not (0)",
		},
		[]string{"algorithm"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesuggest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinesuggest_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
