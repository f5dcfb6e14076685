// Package index 提供字符串实体 ID 与稠密整数下标之间的双向映射。
//
// 矩阵分解求解器只接受 0..count-1 的整数下标，而用户/物品在业务侧是不透明的字符串 ID。
// Index 在训练时基于观测到的去重 ID 集合构建一次，之后只读，可被任意多个并发预测共享。
package index

import (
	"fmt"
	"strconv"

	"github.com/rushteam/simitem/core"
)

// Index 是字符串 ID 与 [0, Len()) 之间的双射。
// 两个方向的查找都是 O(1)。
type Index struct {
	forward  map[string]int
	backward []string
}

// Build 为去重后的 ID 依次分配 0..count-1。
// 分配顺序为首次出现的顺序：同样的输入序列总是得到同样的映射。
func Build(ids []string) *Index {
	idx := &Index{
		forward:  make(map[string]int, len(ids)),
		backward: make([]string, 0, len(ids)),
	}
	for _, id := range ids {
		if _, ok := idx.forward[id]; ok {
			continue
		}
		idx.forward[id] = len(idx.backward)
		idx.backward = append(idx.backward, id)
	}
	return idx
}

// Len 返回已注册 ID 的数量。
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.backward)
}

// Forward 把 ID 翻译为下标；ID 从未注册时返回 NOT_FOUND。
func (x *Index) Forward(id string) (int, error) {
	if x != nil {
		if i, ok := x.forward[id]; ok {
			return i, nil
		}
	}
	return -1, core.NewDomainError(core.ModuleIndex, core.ErrorCodeNotFound, fmt.Sprintf("index: id %q not registered", id))
}

// Lookup 与 Forward 相同，但以 bool 报告是否存在，适合热路径。
func (x *Index) Lookup(id string) (int, bool) {
	if x == nil {
		return -1, false
	}
	i, ok := x.forward[id]
	return i, ok
}

// Backward 把下标翻译回 ID，下标越界时返回 NOT_FOUND。
func (x *Index) Backward(i int) (string, error) {
	if x == nil || i < 0 || i >= len(x.backward) {
		return "", core.NewDomainError(core.ModuleIndex, core.ErrorCodeNotFound, "index: position "+strconv.Itoa(i)+" out of range")
	}
	return x.backward[i], nil
}

// MustBackward 用于已校验过范围的下标；越界会 panic。
func (x *Index) MustBackward(i int) string {
	return x.backward[i]
}

// IDs 按下标顺序返回所有 ID 的拷贝。
func (x *Index) IDs() []string {
	if x == nil {
		return nil
	}
	out := make([]string, len(x.backward))
	copy(out, x.backward)
	return out
}

// Translate 批量翻译 ID，翻译失败的条目交给 onMiss 处理（可为 nil）后跳过。
// 返回值为 nil 当且仅当 ids 为 nil，用于保留“约束未设置”的语义。
func (x *Index) Translate(ids []string, onMiss func(id string)) core.IndexSet {
	if ids == nil {
		return nil
	}
	out := make(core.IndexSet, len(ids))
	for _, id := range ids {
		i, ok := x.Lookup(id)
		if !ok {
			if onMiss != nil {
				onMiss(id)
			}
			continue
		}
		out[i] = struct{}{}
	}
	return out
}
