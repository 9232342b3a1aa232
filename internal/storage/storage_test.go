package storage

import (
	"testing"
	"time"
)

func TestFilter_Matches(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	run := &Run{ID: "r1", Query: `site:linkedin.com/in/ "Marketing" AND "Shanghai"`, StartedAt: now}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"query substring", Filter{Query: "shanghai"}, true},
		{"query miss", Filter{Query: "berlin"}, false},
		{"since before run", Filter{Since: &earlier}, true},
		{"since after run", Filter{Since: ptr(now.Add(time.Minute))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(run); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Page(t *testing.T) {
	runs := []*Run{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	got := Filter{Offset: 1, Limit: 2}.Page(runs)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("unexpected page: %v", ids(got))
	}

	if got := (Filter{Offset: 10}).Page(runs); len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v", ids(got))
	}

	if got := (Filter{}).Page(runs); len(got) != 4 || got[0].ID != "d" {
		t.Errorf("expected all runs newest first, got %v", ids(got))
	}

	if runs[0].ID != "a" {
		t.Errorf("Page must not reorder its input")
	}
}

func ptr[T any](v T) *T { return &v }

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
