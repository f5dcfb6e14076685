// Package aggregate 把原始浏览事件聚合为隐式偏好三元组 (user, item, count)。
//
// 流程：
//  1. 事件按分片并发处理（errgroup），每个分片独立翻译 ID 并局部求和
//  2. 无法翻译的用户/物品 ID 记入诊断后丢弃，不影响整体进度
//  3. 各分片的局部和合并（求和满足交换律、结合律，与分片顺序无关）
//  4. 结果按 (user, item) 排序输出，事件顺序不会改变结果
package aggregate

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/index"
)

// defaultPartitionSize 是单个分片的最小事件数，事件过少时不值得开协程。
const defaultPartitionSize = 4096

type pair struct {
	user int
	item int
}

type options struct {
	workers       int
	partitionSize int
}

// Option 配置聚合行为。
type Option func(*options)

// WithWorkers 设置最大并发分片数，<= 0 时使用 4。
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithPartitionSize 设置单个分片的最小事件数，<= 0 时使用默认值。
func WithPartitionSize(n int) Option {
	return func(o *options) { o.partitionSize = n }
}

// Aggregate 把浏览事件聚合为偏好三元组；每条事件权重为 1。
// 只有 ctx 被取消时才返回错误，单条事件的问题只会写入 diag。
func Aggregate(
	ctx context.Context,
	events []core.ViewEvent,
	users, items *index.Index,
	diag *core.Diagnostics,
	opts ...Option,
) ([]core.Rating, error) {
	o := options{workers: 4, partitionSize: defaultPartitionSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = 4
	}
	if o.partitionSize <= 0 {
		o.partitionSize = defaultPartitionSize
	}

	parts := partition(len(events), o.workers, o.partitionSize)
	partial := make([]map[pair]float64, len(parts))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.workers)
	for p, bounds := range parts {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			partial[p] = sumPartition(events[bounds[0]:bounds[1]], users, items, diag)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[pair]float64)
	for _, m := range partial {
		for k, v := range m {
			merged[k] += v
		}
	}

	out := make([]core.Rating, 0, len(merged))
	for k, v := range merged {
		out = append(out, core.Rating{User: k.user, Item: k.item, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].User != out[j].User {
			return out[i].User < out[j].User
		}
		return out[i].Item < out[j].Item
	})
	return out, nil
}

func sumPartition(events []core.ViewEvent, users, items *index.Index, diag *core.Diagnostics) map[pair]float64 {
	sums := make(map[pair]float64)
	for _, ev := range events {
		u, ok := users.Lookup(ev.UserID)
		if !ok {
			diag.Record(core.NoteUnknownUser, ev.UserID, "user id not in index, event dropped")
			continue
		}
		i, ok := items.Lookup(ev.ItemID)
		if !ok {
			diag.Record(core.NoteUnknownItem, ev.ItemID, "item id not in index, event dropped")
			continue
		}
		sums[pair{user: u, item: i}]++
	}
	return sums
}

// partition 把 [0,n) 切成不超过 workers 个、每个至少 minSize 的连续区间。
func partition(n, workers, minSize int) [][2]int {
	if n == 0 {
		return nil
	}
	parts := (n + minSize - 1) / minSize
	if parts > workers {
		parts = workers
	}
	size := (n + parts - 1) / parts
	out := make([][2]int, 0, parts)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
