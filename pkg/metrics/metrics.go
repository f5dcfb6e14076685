// Package metrics 定义训练与预测的 Prometheus 指标。
// 指标通过 promauto 注册到默认 Registry，宿主进程自行暴露 /metrics。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 状态标签取值
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusEmpty = "empty"
)

var (
	// TrainRunsTotal 训练次数，按结果状态区分
	TrainRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simitem_train_runs_total",
			Help: "Total number of training runs",
		},
		[]string{"status"},
	)

	// TrainDuration 训练耗时（聚合 + 分解 + 打包）
	TrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simitem_train_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	// ModelVectors 最近一次训练产出的物品向量数
	ModelVectors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simitem_model_item_vectors",
			Help: "Number of item feature vectors in the last trained model",
		},
	)

	// PredictRequestsTotal 预测次数，按结果状态区分
	PredictRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simitem_predict_requests_total",
			Help: "Total number of predict calls",
		},
		[]string{"status"},
	)

	// PredictDuration 预测耗时
	PredictDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simitem_predict_duration_seconds",
			Help:    "Duration of predict calls in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// DroppedIDsTotal 被丢弃的不可翻译 ID，kind 与 core.Note 的 Kind 一致
	DroppedIDsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simitem_dropped_ids_total",
			Help: "Total number of unmappable ids dropped during train or predict",
		},
		[]string{"kind"},
	)
)

// ObserveDrops 把一次调用的诊断计数累加到 DroppedIDsTotal。
func ObserveDrops(counts map[string]int) {
	for kind, n := range counts {
		if n > 0 {
			DroppedIDsTotal.WithLabelValues(kind).Add(float64(n))
		}
	}
}
