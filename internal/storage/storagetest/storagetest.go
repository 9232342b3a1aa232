// Package storagetest holds the behavior every storage.Backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/scout/internal/outreach"
	"github.com/FranksOps/scout/internal/storage"
)

// Runs returns three runs a second apart, oldest first. IDs are prefixed so
// shared databases do not collide.
func Runs(prefix string) []*storage.Run {
	base := time.Now().UTC().Truncate(time.Millisecond)
	return []*storage.Run{
		{
			ID:        prefix + "-1",
			Query:     `site:linkedin.com/in/ "Marketing" AND "Shanghai"`,
			StartedAt: base.Add(-2 * time.Second),
			Duration:  1500 * time.Millisecond,
			Records: []outreach.Record{{
				outreach.FieldFullName:   "Jane Doe",
				outreach.FieldJobTitle:   "Marketing Lead",
				outreach.FieldCompany:    "Acme",
				outreach.FieldMessage:    "Hi Jane, ...",
				outreach.FieldProfileURL: "https://linkedin.com/in/jane",
			}},
		},
		{
			ID:        prefix + "-2",
			Query:     `site:linkedin.com/in/ "Sales" AND "Berlin"`,
			StartedAt: base.Add(-time.Second),
			Duration:  time.Second,
			Records:   []outreach.Record{},
		},
		{
			ID:        prefix + "-3",
			Query:     `site:linkedin.com/in/ "Marketing" AND "Beijing"`,
			StartedAt: base,
			Duration:  2 * time.Second,
			Records: []outreach.Record{
				{outreach.FieldFullName: "Li Wei", outreach.FieldMessage: "Hello Li, ..."},
				{outreach.FieldMessage: "Hi there, ..."},
			},
		},
	}
}

// Exercise saves Runs(prefix) into b and checks filtering, ordering and
// pagination. b must not already contain runs with the same query text.
func Exercise(t *testing.T, b storage.Backend, prefix string) {
	t.Helper()
	ctx := context.Background()
	runs := Runs(prefix)

	for _, r := range runs {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s): %v", r.ID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{Query: "site:linkedin.com/in/"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) < len(runs) {
		t.Fatalf("expected at least %d runs, got %d", len(runs), len(all))
	}

	marketing, err := b.Query(ctx, storage.Filter{Query: "marketing"})
	if err != nil {
		t.Fatalf("Query(marketing): %v", err)
	}
	var got []*storage.Run
	for _, r := range marketing {
		if r.ID == runs[0].ID || r.ID == runs[2].ID {
			got = append(got, r)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 marketing runs, got %d", len(got))
	}
	if got[0].ID != runs[2].ID {
		t.Errorf("expected newest run first, got %s", got[0].ID)
	}

	oldest := got[1]
	if oldest.Query != runs[0].Query {
		t.Errorf("query mismatch: %q", oldest.Query)
	}
	if !oldest.StartedAt.Equal(runs[0].StartedAt) {
		t.Errorf("started_at mismatch: got %v want %v", oldest.StartedAt, runs[0].StartedAt)
	}
	if oldest.Duration != runs[0].Duration {
		t.Errorf("duration mismatch: got %v want %v", oldest.Duration, runs[0].Duration)
	}
	if len(oldest.Records) != 1 || oldest.Records[0][outreach.FieldMessage] != "Hi Jane, ..." {
		t.Errorf("records did not round-trip: %v", oldest.Records)
	}

	since := runs[1].StartedAt
	recent, err := b.Query(ctx, storage.Filter{Query: "site:linkedin.com/in/", Since: &since})
	if err != nil {
		t.Fatalf("Query(since): %v", err)
	}
	for _, r := range recent {
		if r.StartedAt.Before(since) {
			t.Errorf("run %s is older than since", r.ID)
		}
	}

	page, err := b.Query(ctx, storage.Filter{Query: "marketing", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Query(page): %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 run on page, got %d", len(page))
	}

	none, err := b.Query(ctx, storage.Filter{Query: "no such query anywhere"})
	if err != nil {
		t.Fatalf("Query(none): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no runs, got %d", len(none))
	}
}
