package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 Pipeline 的配置结构，既可以内嵌在引擎配置中，也可以是独立文件：
//
//	pipeline:
//	  name: similar
//	  nodes:
//	    - type: recall.similar
//	      config: {workers: 4}
//	    - type: filter
//	    - type: rerank.topn
//	      config: {n: 10}
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string                 `yaml:"type" json:"type"`     // recall.similar / filter / rerank.topn
	Config map[string]interface{} `yaml:"config" json:"config"` // Node 特定配置
}

// Format 是配置文件格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Load 读取独立的 Pipeline 配置文件：扩展名为 .json 时按 JSON 解析，其余按 YAML 解析。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return Parse(data, format)
}

// Parse 解析配置内容，并检查每个 node 都声明了 type。
func Parse(data []byte, format Format) (*Config, error) {
	var (
		cfg Config
		err error
	)
	switch format {
	case FormatYAML, "":
		err = yaml.Unmarshal(data, &cfg)
	case FormatJSON:
		err = json.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported pipeline config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse pipeline config (%s): %w", format, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Check 检查每个 node 都声明了 type。
func (c *Config) Check() error {
	for i, nc := range c.Pipeline.Nodes {
		if nc.Type == "" {
			return fmt.Errorf("pipeline node %d: missing type", i)
		}
	}
	return nil
}

// BuildPipeline 按配置顺序用 factory 构建各 Node。
// factory 由 config 包提供（config.DefaultFactory），pipeline 包本身不依赖具体 Node。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for i, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("pipeline node %d (%s): %w", i, nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Nodes: nodes}, nil
}

// NodeBuilder 根据 Node 的 config 构建 Node 实例。
type NodeBuilder func(map[string]interface{}) (Node, error)

// NodeFactory 按类型名构建 Node。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]NodeBuilder),
	}
}

// Register 注册 Node 构建器，同名覆盖。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]interface{}) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return builder(config)
}
