package core

import "time"

// RecallConfig 是召回相关的配置接口，用于提供默认值。
type RecallConfig interface {
	// DefaultTopN 返回默认的推荐条数
	DefaultTopN() int

	// DefaultMinSeeds 返回最少可用种子数
	DefaultMinSeeds() int

	// DefaultMinSupport 返回协同过滤中种子参与建模的最少评分数
	DefaultMinSupport() int

	// DefaultFactors 返回矩阵分解的隐向量维度
	DefaultFactors() int

	// DefaultLikeThreshold 返回"喜欢"的评分阈值（物品近邻模型使用）
	DefaultLikeThreshold() float64

	// DefaultBuildTimeout 返回索引/模型构建的超时时间
	DefaultBuildTimeout() time.Duration
}

// DefaultRecallConfig 是默认的召回配置实现。
type DefaultRecallConfig struct{}

func (c *DefaultRecallConfig) DefaultTopN() int {
	return 10
}

func (c *DefaultRecallConfig) DefaultMinSeeds() int {
	return 1
}

func (c *DefaultRecallConfig) DefaultMinSupport() int {
	return 5
}

func (c *DefaultRecallConfig) DefaultFactors() int {
	return 40
}

func (c *DefaultRecallConfig) DefaultLikeThreshold() float64 {
	return 4.0
}

func (c *DefaultRecallConfig) DefaultBuildTimeout() time.Duration {
	return 30 * time.Minute
}

// Defaults 是包级共享的默认配置。
var Defaults RecallConfig = &DefaultRecallConfig{}
