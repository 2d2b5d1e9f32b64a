// Package config 负责应用配置加载，以及把 pipeline 配置转换为 Node。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/cinesuggest/catalog"
	"github.com/rushteam/cinesuggest/core"
	"github.com/rushteam/cinesuggest/pipeline"
	"github.com/rushteam/cinesuggest/pkg/logging"
	"github.com/rushteam/cinesuggest/recall"
	"github.com/rushteam/cinesuggest/store"
)

// EnvPrefix 是环境变量前缀，"__" 表示层级：
// CINESUGGEST_COLLABORATIVE__MF__FACTORS=64 -> collaborative.mf.factors
const EnvPrefix = "CINESUGGEST_"

// 协同过滤模型
const (
	ModelMF     = "mf"
	ModelItemCF = "item_cf"
)

// AppConfig 是应用配置。
type AppConfig struct {
	Data          DataConfig                       `koanf:"data"`
	Content       recall.ContentConfig             `koanf:"content"`
	Collaborative CollaborativeConfig              `koanf:"collaborative"`
	Recommend     RecommendConfig                  `koanf:"recommend"`
	ModelCache    store.Config                     `koanf:"model_cache"`
	Server        ServerConfig                     `koanf:"server"`
	Log           logging.Config                   `koanf:"log"`
	Pipelines     map[string][]pipeline.NodeConfig `koanf:"pipelines"`
}

// DataConfig 是目录数据源：CSV 文件或 SQLite 数据库，SQLite 优先。
type DataConfig struct {
	Movies  string `koanf:"movies"`
	Ratings string `koanf:"ratings"`
	Tags    string `koanf:"tags"`
	SQLite  string `koanf:"sqlite"`
}

// Paths 返回 CSV 文件路径。
func (d DataConfig) Paths() catalog.Paths {
	return catalog.Paths{Movies: d.Movies, Ratings: d.Ratings, Tags: d.Tags}
}

// CollaborativeConfig 选择协同过滤模型并携带各自参数。
type CollaborativeConfig struct {
	// Model: mf / item_cf
	Model  string              `koanf:"model"`
	MF     recall.MFConfig     `koanf:"mf"`
	ItemCF recall.ItemCFConfig `koanf:"item_cf"`
}

// RecommendConfig 是请求级默认值。
type RecommendConfig struct {
	TopN int `koanf:"top_n"`
	// MinSeeds 解析成功的最少种子数
	MinSeeds int `koanf:"min_seeds"`
	// RequiredSeeds HTTP 接口要求的种子数
	RequiredSeeds int `koanf:"required_seeds"`
	// MaxTopN HTTP 接口允许的最大 top_n
	MaxTopN int `koanf:"max_top_n"`
}

// ServerConfig 是 HTTP 服务配置。
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// RequestTimeout 单个推荐请求的超时
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	return &AppConfig{
		Data: DataConfig{
			Movies:  "data/movies.csv",
			Ratings: "data/ratings.csv",
		},
		Content: recall.DefaultContentConfig(),
		Collaborative: CollaborativeConfig{
			Model:  ModelMF,
			MF:     recall.DefaultMFConfig(),
			ItemCF: recall.DefaultItemCFConfig(),
		},
		Recommend: RecommendConfig{
			TopN:          core.Defaults.DefaultTopN(),
			MinSeeds:      core.Defaults.DefaultMinSeeds(),
			RequiredSeeds: 3,
			MaxTopN:       100,
		},
		ModelCache: store.Config{Backend: store.BackendNone},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Log: logging.Config{Level: "info", Format: "json"},
	}
}

// Load 依次加载：默认值 -> YAML 文件（path 为空时跳过）-> 环境变量。
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Pipelines) == 0 {
		cfg.Pipelines = DefaultPipelines()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Validate 校验配置。
func (c *AppConfig) Validate() error {
	switch c.Collaborative.Model {
	case ModelMF, ModelItemCF:
	default:
		return invalid("collaborative.model must be mf or item_cf, got %q", c.Collaborative.Model)
	}
	if c.Collaborative.MF.Factors <= 0 {
		return invalid("collaborative.mf.factors must be positive")
	}
	if c.Collaborative.MF.MinSupport < 1 || c.Collaborative.ItemCF.MinSupport < 1 {
		return invalid("collaborative min_support must be at least 1")
	}
	if c.Recommend.TopN <= 0 || c.Recommend.TopN > c.Recommend.MaxTopN {
		return invalid("recommend.top_n must be in [1, %d]", c.Recommend.MaxTopN)
	}
	if c.Recommend.MinSeeds < 1 || c.Recommend.RequiredSeeds < c.Recommend.MinSeeds {
		return invalid("recommend.min_seeds must be in [1, required_seeds]")
	}
	if c.Data.SQLite == "" && (c.Data.Movies == "" || c.Data.Ratings == "") {
		return invalid("data.movies and data.ratings are required without data.sqlite")
	}
	for _, algo := range []string{core.AlgorithmContent, core.AlgorithmCollaborative} {
		if len(c.Pipelines[algo]) == 0 {
			return invalid("pipelines.%s is empty", algo)
		}
		if err := ValidateNodes(c.Pipelines[algo]); err != nil {
			return invalid("pipelines.%s: %v", algo, err)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput, "config: "+fmt.Sprintf(format, args...))
}

// DefaultPipelines 返回两个算法族的默认 pipeline：召回 -> 过滤种子 -> 聚合截断。
func DefaultPipelines() map[string][]pipeline.NodeConfig {
	tail := []pipeline.NodeConfig{
		{Type: NodeFilter, Config: map[string]any{"seed": true}},
		{Type: NodeTopN},
	}
	return map[string][]pipeline.NodeConfig{
		core.AlgorithmContent:       append([]pipeline.NodeConfig{{Type: NodeRecallContent}}, tail...),
		core.AlgorithmCollaborative: append([]pipeline.NodeConfig{{Type: NodeRecallCollaborative}}, tail...),
	}
}
