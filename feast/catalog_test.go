package feast

import (
	"context"
	"errors"
	"testing"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/rushteam/simitem/core"
)

type fakeFetcher struct {
	categories map[string]string
	err        error
	batches    []int
	short      bool
}

func (f *fakeFetcher) FetchRows(_ context.Context, _ string, features []string, entities []feastsdk.Row) ([]feastsdk.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, len(entities))
	rows := make([]feastsdk.Row, 0, len(entities))
	for _, e := range entities {
		id := e["item_id"].GetStringVal()
		row := feastsdk.Row{}
		if c, ok := f.categories[id]; ok {
			row[features[0]] = feastsdk.StrVal(c)
		}
		rows = append(rows, row)
	}
	if f.short && len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

func TestCatalogLoader_Load(t *testing.T) {
	f := &fakeFetcher{categories: map[string]string{
		"i1": "music, live",
		"i2": "",
		"i4": "sports",
	}}
	l := &CatalogLoader{Fetcher: f, Project: "shop", CategoriesFeature: "item_attrs:categories", BatchSize: 2}

	items, err := l.Load(context.Background(), []string{"i1", "i2", "i3", "i4"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("Load() returned %d items, want 4", len(items))
	}
	if len(f.batches) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(f.batches))
	}

	tests := []struct {
		idx  int
		id   string
		want []string
	}{
		{idx: 0, id: "i1", want: []string{"music", "live"}},
		{idx: 1, id: "i2", want: nil},
		{idx: 2, id: "i3", want: nil},
		{idx: 3, id: "i4", want: []string{"sports"}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := items[tt.idx]
			if got.ID != tt.id {
				t.Fatalf("items[%d].ID = %q, want %q", tt.idx, got.ID, tt.id)
			}
			if (got.Categories == nil) != (tt.want == nil) || len(got.Categories) != len(tt.want) {
				t.Fatalf("Categories = %#v, want %#v", got.Categories, tt.want)
			}
			for i := range tt.want {
				if got.Categories[i] != tt.want[i] {
					t.Errorf("Categories = %v, want %v", got.Categories, tt.want)
				}
			}
		})
	}
}

func TestCatalogLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		loader  *CatalogLoader
		wantErr func(error) bool
	}{
		{
			name:    "nil fetcher",
			loader:  &CatalogLoader{CategoriesFeature: "f"},
			wantErr: core.IsInvalidInput,
		},
		{
			name:    "missing feature",
			loader:  &CatalogLoader{Fetcher: &fakeFetcher{}},
			wantErr: core.IsInvalidInput,
		},
		{
			name:    "fetch failure",
			loader:  &CatalogLoader{Fetcher: &fakeFetcher{err: errors.New("down")}, CategoriesFeature: "f"},
			wantErr: core.IsUnavailable,
		},
		{
			name:    "row count mismatch",
			loader:  &CatalogLoader{Fetcher: &fakeFetcher{short: true}, CategoriesFeature: "f"},
			wantErr: core.IsInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.loader.Load(context.Background(), []string{"a", "b"})
			if !tt.wantErr(err) {
				t.Errorf("Load() error = %v", err)
			}
		})
	}
}

type closingFetcher struct {
	fakeFetcher
	closed int
}

func (f *closingFetcher) Close() error {
	f.closed++
	return nil
}

func TestCatalogLoader_Close(t *testing.T) {
	f := &closingFetcher{}
	l := &CatalogLoader{Fetcher: f}
	if err := l.Close(); err != nil || f.closed != 1 {
		t.Errorf("Close() = %v, closed %d times; want nil, 1", err, f.closed)
	}

	// Fetcher 不持有连接时 Close 是空操作
	if err := (&CatalogLoader{Fetcher: &fakeFetcher{}}).Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestGrpcFetcher_Close(t *testing.T) {
	// 拨号是非阻塞的，不需要真实的 Feast Serving
	g, err := NewGrpcFetcher(Config{Host: "127.0.0.1", Port: 1})
	if err != nil {
		t.Fatalf("NewGrpcFetcher() error = %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
