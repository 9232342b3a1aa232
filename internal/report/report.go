// Package report renders pipeline output as text, JSON or an HTML page.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/FranksOps/scout/internal/outreach"
)

// Placeholders shown for fields a record lacks.
const (
	UnknownName = "Unknown"
	NotAvail    = "N/A"
	NoLink      = "#"
)

// Card is one record prepared for display.
type Card struct {
	Name       string
	JobTitle   string
	Company    string
	ProfileURL string
	Industry   string
	Interests  string
	Activity   string
	Message    string
}

// Heading is the "name - title at company" line.
func (c Card) Heading() string {
	return fmt.Sprintf("%s - %s at %s", c.Name, c.JobTitle, c.Company)
}

// NewCard applies the display placeholders to rec.
func NewCard(rec outreach.Record) Card {
	return Card{
		Name:       rec.Get(outreach.FieldFullName, UnknownName),
		JobTitle:   rec.Get(outreach.FieldJobTitle, NotAvail),
		Company:    rec.Get(outreach.FieldCompany, NotAvail),
		ProfileURL: rec.Get(outreach.FieldProfileURL, NoLink),
		Industry:   rec.Get(outreach.FieldIndustry, NotAvail),
		Interests:  rec.Get(outreach.FieldSkills, NotAvail),
		Activity:   rec.Get(outreach.FieldRecentActivity, NotAvail),
		Message:    rec[outreach.FieldMessage],
	}
}

// Cards converts records in order.
func Cards(records []outreach.Record) []Card {
	out := make([]Card, len(records))
	for i, r := range records {
		out[i] = NewCard(r)
	}
	return out
}

// WriteJSON writes the records to the provided writer as an indented array.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

var textTmpl = template.Must(template.New("textReport").Funcs(template.FuncMap{
	"rule": func(s string) string { return strings.Repeat("-", utf8.RuneCountInString(s)) },
}).Parse(`{{range $i, $c := .}}
{{$c.Heading}}
{{rule $c.Heading}}
Profile:         {{$c.ProfileURL}}
Industry:        {{$c.Industry}}
Key Interests:   {{$c.Interests}}
Recent Activity: {{$c.Activity}}

Personalized Outreach Message:
{{$c.Message}}
{{else}}
No profiles found.
{{end}}`))

// WriteText writes a human-readable listing of the records.
func WriteText(w io.Writer, records []outreach.Record) error {
	if err := textTmpl.Execute(w, Cards(records)); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}
