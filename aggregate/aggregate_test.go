package aggregate

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"github.com/rushteam/simitem/core"
	"github.com/rushteam/simitem/index"
)

func TestAggregate(t *testing.T) {
	users := index.Build([]string{"u1", "u2"})
	items := index.Build([]string{"i1", "i2", "i3"})

	tests := []struct {
		name      string
		events    []core.ViewEvent
		want      []core.Rating
		wantNotes map[string]int
	}{
		{
			name:   "no events",
			events: nil,
			want:   []core.Rating{},
		},
		{
			name: "duplicates are summed",
			events: []core.ViewEvent{
				{UserID: "u1", ItemID: "i1"},
				{UserID: "u1", ItemID: "i1"},
				{UserID: "u2", ItemID: "i3"},
				{UserID: "u1", ItemID: "i1"},
			},
			want: []core.Rating{
				{User: 0, Item: 0, Count: 3},
				{User: 1, Item: 2, Count: 1},
			},
		},
		{
			name: "unmappable ids are dropped and noted",
			events: []core.ViewEvent{
				{UserID: "ghost", ItemID: "i1"},
				{UserID: "u2", ItemID: "missing"},
				{UserID: "u2", ItemID: "i2"},
			},
			want: []core.Rating{
				{User: 1, Item: 1, Count: 1},
			},
			wantNotes: map[string]int{
				core.NoteUnknownUser: 1,
				core.NoteUnknownItem: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := core.NewDiagnostics()
			got, err := Aggregate(context.Background(), tt.events, users, items, diag)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Aggregate() = %v, want %v", got, tt.want)
			}
			for kind, n := range tt.wantNotes {
				if diag.Count(kind) != n {
					t.Errorf("diag.Count(%q) = %d, want %d", kind, diag.Count(kind), n)
				}
			}
		})
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	userIDs := []string{"u0", "u1", "u2", "u3", "u4"}
	itemIDs := []string{"i0", "i1", "i2", "i3"}
	users := index.Build(userIDs)
	items := index.Build(itemIDs)

	rng := rand.New(rand.NewSource(7))
	events := make([]core.ViewEvent, 0, 500)
	for i := 0; i < 500; i++ {
		events = append(events, core.ViewEvent{
			UserID: userIDs[rng.Intn(len(userIDs))],
			ItemID: itemIDs[rng.Intn(len(itemIDs))],
		})
	}

	// 小分片强制走多协程路径
	base, err := Aggregate(context.Background(), events, users, items, nil, WithPartitionSize(16), WithWorkers(8))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	var total float64
	for _, r := range base {
		if r.Count < 1 {
			t.Errorf("rating %v has count < 1", r)
		}
		total += r.Count
	}
	if total != float64(len(events)) {
		t.Errorf("total count = %v, want %d", total, len(events))
	}

	for round := 0; round < 5; round++ {
		shuffled := make([]core.ViewEvent, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := Aggregate(context.Background(), shuffled, users, items, nil, WithPartitionSize(16), WithWorkers(3))
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("round %d: permuted input changed the result", round)
		}
	}
}

func TestAggregate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	users := index.Build([]string{"u1"})
	items := index.Build([]string{"i1"})
	events := []core.ViewEvent{{UserID: "u1", ItemID: "i1"}}

	if _, err := Aggregate(ctx, events, users, items, nil); err == nil {
		t.Error("Aggregate() with canceled context returned nil error")
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, workers, minSize int
		wantParts           int
	}{
		{n: 0, workers: 4, minSize: 10, wantParts: 0},
		{n: 5, workers: 4, minSize: 10, wantParts: 1},
		{n: 100, workers: 4, minSize: 10, wantParts: 4},
		{n: 30, workers: 8, minSize: 10, wantParts: 3},
	}
	for _, tt := range tests {
		parts := partition(tt.n, tt.workers, tt.minSize)
		if len(parts) != tt.wantParts {
			t.Errorf("partition(%d,%d,%d) = %d parts, want %d", tt.n, tt.workers, tt.minSize, len(parts), tt.wantParts)
		}
		covered := 0
		for _, p := range parts {
			covered += p[1] - p[0]
		}
		if covered != tt.n {
			t.Errorf("partition(%d,...) covers %d elements", tt.n, covered)
		}
	}
}
