package core

import "testing"

func TestDiagnostics(t *testing.T) {
	d := NewDiagnostics()
	d.LimitNotes(2)
	d.LimitNotes(5) // 已有上限，保持 2
	for i := 0; i < 4; i++ {
		d.Record(NoteUnknownItem, "x", "")
	}
	d.Record(NoteUnknownUser, "u", "")

	if got := len(d.Notes()); got != 2 {
		t.Errorf("len(Notes()) = %d, want 2", got)
	}
	if d.Count(NoteUnknownItem) != 4 || d.Count(NoteUnknownUser) != 1 {
		t.Errorf("Counts() = %v", d.Counts())
	}

	// nil Diagnostics 上的调用都是空操作
	var nilDiag *Diagnostics
	nilDiag.LimitNotes(1)
	nilDiag.Record(NoteEmptyQuery, "", "")
	if nilDiag.Count(NoteEmptyQuery) != 0 || nilDiag.Notes() != nil || len(nilDiag.Counts()) != 0 {
		t.Error("nil Diagnostics should record nothing")
	}
}
