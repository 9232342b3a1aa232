package report

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/scout/internal/storage"
)

// Summary aggregates archived runs.
type Summary struct {
	TotalRuns     int
	TotalProfiles int
	FirstRun      time.Time
	LastRun       time.Time
	AvgDuration   time.Duration
	Runs          []*storage.Run
}

// GenerateSummary processes archived runs to generate summary figures.
func GenerateSummary(runs []*storage.Run) Summary {
	s := Summary{Runs: runs}
	if len(runs) == 0 {
		return s
	}

	s.FirstRun = runs[0].StartedAt
	s.LastRun = runs[0].StartedAt

	var total time.Duration
	for _, r := range runs {
		s.TotalRuns++
		s.TotalProfiles += len(r.Records)
		total += r.Duration

		if r.StartedAt.Before(s.FirstRun) {
			s.FirstRun = r.StartedAt
		}
		if r.StartedAt.After(s.LastRun) {
			s.LastRun = r.StartedAt
		}
	}

	s.AvgDuration = (total / time.Duration(s.TotalRuns)).Round(time.Millisecond)
	return s
}

var historyTmpl = template.Must(template.New("history").Parse(`Scout Run History
-----------------
Runs:          {{.TotalRuns}}
Profiles:      {{.TotalProfiles}}
{{- if .TotalRuns}}
Between:       {{.FirstRun.Format "2006-01-02 15:04:05"}} - {{.LastRun.Format "2006-01-02 15:04:05"}}
Avg Duration:  {{.AvgDuration}}
{{- end}}
{{range .Runs}}
{{.StartedAt.Format "2006-01-02 15:04:05"}}  {{.ID}}  {{len .Records}} profiles  {{.Query}}
{{- else}}
No archived runs.
{{- end}}
`))

// WriteHistory writes a text listing of archived runs.
func WriteHistory(w io.Writer, summary Summary) error {
	if err := historyTmpl.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render history: %w", err)
	}
	return nil
}
