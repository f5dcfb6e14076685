package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/simitem/als"
	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/feast"
	"github.com/rushteam/simitem/pipeline"
	"github.com/rushteam/simitem/pkg/logging"
	"github.com/rushteam/simitem/store"
)

// TrainConfig 是训练配置。Rank 与 Iterations 必须为正数。
type TrainConfig struct {
	// Rank 是隐向量维度
	Rank int `yaml:"rank" json:"rank"`

	// Iterations 是 ALS 交替优化轮数
	Iterations int `yaml:"iterations" json:"iterations"`

	// Workers 是事件聚合的并发分片数
	Workers int `yaml:"workers" json:"workers"`

	// MaxNotes 限制训练诊断保留的明细条数，<= 0 表示不限制；计数不受影响
	MaxNotes int `yaml:"max_notes" json:"max_notes"`

	ALS als.Config `yaml:"als" json:"als"`
}

// DefaultTrainConfig 返回默认训练配置：rank 10，20 轮，诊断明细最多 1000 条。
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Rank:       10,
		Iterations: 20,
		Workers:    4,
		MaxNotes:   1000,
		ALS:        als.DefaultConfig(),
	}
}

func (c TrainConfig) validate() error {
	if c.Rank <= 0 {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, fmt.Sprintf("train: rank must be positive, got %d", c.Rank))
	}
	if c.Iterations <= 0 {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, fmt.Sprintf("train: iterations must be positive, got %d", c.Iterations))
	}
	return nil
}

// PredictConfig 是预测配置，实现 core.PredictConfig。
type PredictConfig struct {
	// Num 是查询未指定 num 时的返回条数
	Num int `yaml:"num" json:"num"`

	// Workers 是打分并发分片数
	Workers int `yaml:"workers" json:"workers"`

	// Timeout 是单次预测超时，0 表示不设置
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxNotes 限制单次预测保留的诊断明细条数，<= 0 表示不限制
	MaxNotes int `yaml:"max_notes" json:"max_notes"`
}

// DefaultPredictConfigValues 返回 core.DefaultPredictConfig 对应的配置值。
func DefaultPredictConfigValues() PredictConfig {
	def := &core.DefaultPredictConfig{}
	return PredictConfig{
		Num:      def.DefaultNum(),
		Workers:  def.DefaultWorkers(),
		Timeout:  def.DefaultTimeout(),
		MaxNotes: 100,
	}
}

func (c PredictConfig) DefaultNum() int                { return c.Num }
func (c PredictConfig) DefaultWorkers() int            { return c.Workers }
func (c PredictConfig) DefaultTimeout() time.Duration { return c.Timeout }

var _ core.PredictConfig = PredictConfig{}

// Config 是引擎的完整配置，对应一个 YAML 文件：
//
//	logging:
//	  level: info
//	train:
//	  rank: 10
//	  iterations: 20
//	  als: {lambda: 0.01, alpha: 1.0}
//	predict:
//	  num: 10
//	  workers: 4
//	pipeline:
//	  name: similar
//	  nodes:
//	    - type: recall.similar
//	    - type: filter
//	    - type: rerank.topn
//	redis:
//	  addr: localhost:6379
//	  key_prefix: "simitem:"
//	feast:
//	  host: localhost
//	  project: shop
//
// pipeline 也可以放在独立文件中，用 pipeline_file 引用；两者都未配置 nodes 时使用 DefaultPipeline。
type Config struct {
	Logging logging.Config `yaml:"logging" json:"logging"`
	Train   TrainConfig    `yaml:"train" json:"train"`
	Predict PredictConfig  `yaml:"predict" json:"predict"`

	pipeline.Config `yaml:",inline" json:",inline"`

	// PipelineFile 是独立的 Pipeline 配置文件（YAML 或 JSON），相对路径以引擎配置文件所在目录为基准。
	// 与内联的 pipeline 互斥。
	PipelineFile string `yaml:"pipeline_file,omitempty" json:"pipeline_file,omitempty"`

	// Redis 为 nil 时模型快照保存在内存 Store
	Redis *store.RedisOptions `yaml:"redis,omitempty" json:"redis,omitempty"`

	// Feast 为 nil 时物品目录由调用方直接提供
	Feast *feast.Config `yaml:"feast,omitempty" json:"feast,omitempty"`

	// ModelKey 是模型快照在 Store 中的 key
	ModelKey string `yaml:"model_key" json:"model_key"`

	// CategoriesFeature 是 Feast 中的物品类目特征引用
	CategoriesFeature string `yaml:"categories_feature" json:"categories_feature"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Train:    DefaultTrainConfig(),
		Predict:  DefaultPredictConfigValues(),
		ModelKey: "model:similar",
	}
}

// LoadConfig 从 YAML 文件加载配置，未填写的字段使用默认值。
// 配置了 pipeline_file 时用 pipeline.Load 读取该文件作为预测链路。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	if cfg.PipelineFile == "" {
		return cfg, nil
	}

	pf := cfg.PipelineFile
	if !filepath.IsAbs(pf) {
		pf = filepath.Join(filepath.Dir(path), pf)
	}
	pc, err := pipeline.Load(pf)
	if err != nil {
		return nil, err
	}
	cfg.Config = *pc
	return cfg, nil
}

// ParseConfig 解析 YAML 配置。
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	if err := c.Train.validate(); err != nil {
		return err
	}
	if c.Predict.Num <= 0 {
		return core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, fmt.Sprintf("predict: num must be positive, got %d", c.Predict.Num))
	}
	if c.PipelineFile != "" && len(c.Pipeline.Nodes) > 0 {
		return core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, "pipeline and pipeline_file are mutually exclusive")
	}
	if err := c.Config.Check(); err != nil {
		return core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, err.Error())
	}
	if c.Predict.Timeout < 0 {
		return core.NewDomainError(core.ModulePredict, core.ErrorCodeInvalidInput, "predict: timeout must not be negative")
	}
	return nil
}
