package core

import "time"

// PredictConfig 是预测相关的配置接口，用于提供默认值。
type PredictConfig interface {
	// DefaultNum 返回查询未指定 num 时的返回条数
	DefaultNum() int

	// DefaultWorkers 返回打分并发分片数
	DefaultWorkers() int

	// DefaultTimeout 返回单次预测的默认超时时间，0 表示不设置
	DefaultTimeout() time.Duration
}

// DefaultPredictConfig 是默认的预测配置实现。
type DefaultPredictConfig struct{}

func (c *DefaultPredictConfig) DefaultNum() int {
	return 10
}

func (c *DefaultPredictConfig) DefaultWorkers() int {
	return 4
}

func (c *DefaultPredictConfig) DefaultTimeout() time.Duration {
	return 0
}
