package core

import "sync"

// 诊断记录类型
const (
	NoteUnknownUser      = "unknown_user"            // 事件中的用户 ID 不在用户索引中
	NoteUnknownItem      = "unknown_item"            // 事件中的物品 ID 不在物品索引中
	NoteUnknownQueryItem = "unknown_query_item"      // 查询物品无法翻译
	NoteUnknownWhiteList = "unknown_white_list_item" // 白名单条目无法翻译
	NoteUnknownBlackList = "unknown_black_list_item" // 黑名单条目无法翻译
	NoteEmptyQuery       = "empty_query"             // 查询物品全部无法翻译
)

// Note 是一条诊断记录。
type Note struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Diagnostics 是旁路观测日志：只记录被丢弃的 ID 等信息，从不影响控制流和输出。
// 并发安全；nil 接收者上的所有方法都是空操作，调用方不关心诊断时可以直接传 nil。
type Diagnostics struct {
	mu     sync.Mutex
	notes  []Note
	counts map[string]int
	// MaxNotes 限制保留的明细条数，<= 0 表示不限制；计数始终准确。
	MaxNotes int
}

// NewDiagnostics 创建不限制明细条数的 Diagnostics，需要上限时设置 MaxNotes 或调用 LimitNotes。
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{counts: make(map[string]int)}
}

// LimitNotes 在尚未设置上限时把 MaxNotes 设为 n；已有上限时保持不变。
func (d *Diagnostics) LimitNotes(n int) {
	if d == nil || n <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.MaxNotes <= 0 {
		d.MaxNotes = n
	}
}

// Record 追加一条诊断记录。
func (d *Diagnostics) Record(kind, id, message string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	d.counts[kind]++
	if d.MaxNotes > 0 && len(d.notes) >= d.MaxNotes {
		return
	}
	d.notes = append(d.notes, Note{Kind: kind, ID: id, Message: message})
}

// Count 返回某类记录的条数。
func (d *Diagnostics) Count(kind string) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}

// Counts 返回各类记录条数的拷贝。
func (d *Diagnostics) Counts() map[string]int {
	out := make(map[string]int)
	if d == nil {
		return out
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Notes 返回记录明细的拷贝。
func (d *Diagnostics) Notes() []Note {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Note, len(d.notes))
	copy(out, d.notes)
	return out
}
