// Package feast 从 Feast 在线特征库读取物品目录（物品类目），作为训练时的物品元数据来源。
//
// 使用官方 Feast Go SDK (github.com/feast-dev/feast/sdk/go) 的 gRPC 客户端。
package feast

import (
	"context"
	"fmt"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"
)

// Config 是 Feast gRPC 连接配置。
type Config struct {
	Host    string        `yaml:"host" json:"host"`
	Port    int           `yaml:"port" json:"port"` // 默认 6565
	Project string        `yaml:"project" json:"project"`
	Token   string        `yaml:"token" json:"token"` // 非空时使用静态 Token 认证
	TLS     bool          `yaml:"tls" json:"tls"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"` // 单次请求超时，0 表示不设置
}

// RowFetcher 按实体行读取在线特征，返回与 entities 一一对应的特征行。
type RowFetcher interface {
	FetchRows(ctx context.Context, project string, features []string, entities []feastsdk.Row) ([]feastsdk.Row, error)
}

// GrpcFetcher 是基于官方 SDK gRPC 客户端的 RowFetcher。
type GrpcFetcher struct {
	client  *feastsdk.GrpcClient
	timeout time.Duration
}

// NewGrpcFetcher 连接 Feast Serving。
func NewGrpcFetcher(cfg Config) (*GrpcFetcher, error) {
	port := cfg.Port
	if port == 0 {
		port = 6565
	}

	var (
		client *feastsdk.GrpcClient
		err    error
	)
	if cfg.Token != "" || cfg.TLS {
		security := feastsdk.SecurityConfig{EnableTLS: cfg.TLS}
		if cfg.Token != "" {
			security.Credential = feastsdk.NewStaticCredential(cfg.Token)
		}
		client, err = feastsdk.NewSecureGrpcClient(cfg.Host, port, security)
	} else {
		client, err = feastsdk.NewGrpcClient(cfg.Host, port)
	}
	if err != nil {
		return nil, fmt.Errorf("feast: connect %s:%d: %w", cfg.Host, port, err)
	}
	return &GrpcFetcher{client: client, timeout: cfg.Timeout}, nil
}

func (g *GrpcFetcher) FetchRows(ctx context.Context, project string, features []string, entities []feastsdk.Row) ([]feastsdk.Row, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: entities,
		Project:  project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}
	return resp.Rows(), nil
}

// Close 关闭 gRPC 连接，重复调用返回 nil。
func (g *GrpcFetcher) Close() error {
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
