// Package storage defines the optional archive of completed pipeline runs.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/outreach"
)

// Run is one completed pipeline run. Failed runs are never archived.
type Run struct {
	ID        string            `json:"id"`
	Query     string            `json:"query"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Records   []outreach.Record `json:"records"`
}

// Filter allows querying for specific Runs. Query matches a substring of
// the search query, ignoring case.
type Filter struct {
	Query  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Matches reports whether r passes the Query and Since conditions of f.
func (f Filter) Matches(r *Run) bool {
	if f.Query != "" && !strings.Contains(strings.ToLower(r.Query), strings.ToLower(f.Query)) {
		return false
	}
	if f.Since != nil && r.StartedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page orders runs newest first and applies Offset and Limit. runs must
// already be filtered and in insertion order.
func (f Filter) Page(runs []*Run) []*Run {
	out := make([]*Run, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*Run{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// Backend defines the interface for storing and querying runs.
type Backend interface {
	Save(ctx context.Context, run *Run) error
	Query(ctx context.Context, filter Filter) ([]*Run, error)
	Close() error
}
