package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/FranksOps/scout/internal/outreach"
)

// Default page strings.
const (
	DefaultTitle  = "AI-Powered LinkedIn Networking Agent"
	DefaultButton = "Find Marketers in Shanghai (Public Profiles)"
	DefaultHint   = "🚀 Click the button above to extract new profiles and generate messages!"
)

// Page is the data behind the single-page UI.
type Page struct {
	Title  string
	Button string
	Hint   string
	// Action is where the trigger form posts.
	Action string
	// Ran is set once a run was attempted, so an empty result can be told
	// apart from the landing page.
	Ran   bool
	Cards []Card
	// Error is shown as a banner instead of any results.
	Error     string
	ErrorKind string
}

// NewPage returns a Page with the default strings filled in.
func NewPage(title, button string) Page {
	if title == "" {
		title = DefaultTitle
	}
	if button == "" {
		button = DefaultButton
	}
	return Page{Title: title, Button: button, Hint: DefaultHint, Action: "/run"}
}

// WithRecords returns a copy of p showing records.
func (p Page) WithRecords(records []outreach.Record) Page {
	p.Ran = true
	p.Cards = Cards(records)
	p.Error, p.ErrorKind = "", ""
	return p
}

// WithError returns a copy of p showing an error banner and no results.
func (p Page) WithError(kind, msg string) Page {
	p.Ran = true
	p.Cards = nil
	p.Error, p.ErrorKind = msg, kind
	return p
}

var htmlTmpl = template.Must(template.New("htmlReport").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 40px auto; max-width: 860px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  button { font-size: 16px; padding: 10px 18px; border-radius: 5px; border: 1px solid #888; background: #f4f4f4; cursor: pointer; }
  .status { display: none; color: #555; }
  form.busy + .status { display: block; }
  .error { padding: 14px; margin: 20px 0; background: #fdecea; border: 1px solid #e0a39a; border-radius: 5px; color: #8a1f11; }
  .card { margin: 24px 0; padding: 16px 20px; background: #fafafa; border: 1px solid #e2e2e2; border-radius: 5px; }
  .card h3 { margin-top: 0; }
  textarea { width: 100%; height: 100px; font-family: inherit; }
</style>
</head>
<body>
  <h1>{{.Title}}</h1>

  <form method="post" action="{{.Action}}" onsubmit="this.classList.add('busy')">
    <button type="submit">{{.Button}}</button>
  </form>
  <p class="status">🔍 Searching for public LinkedIn profiles...</p>

  {{- if .Error}}
  <div class="error" role="alert"><strong>Run failed ({{.ErrorKind}}):</strong> {{.Error}}</div>
  {{- else if .Ran}}
    {{- range .Cards}}
  <div class="card">
    <h3>{{.Heading}}</h3>
    <p>🔗 <a href="{{.ProfileURL}}" rel="noopener noreferrer" target="_blank">LinkedIn Profile</a></p>
    <p><strong>Industry:</strong> {{.Industry}}</p>
    <p><strong>Key Interests:</strong> {{.Interests}}</p>
    <p><strong>Recent Activity:</strong> {{.Activity}}</p>
    <label>Personalized Outreach Message
      <textarea readonly>{{.Message}}</textarea>
    </label>
  </div>
    {{- else}}
  <p>No public profiles matched this search.</p>
    {{- end}}
  {{- end}}

  <p>{{.Hint}}</p>
</body>
</html>
`))

// WriteHTML writes the page to the provided writer. Values are escaped for
// their HTML context.
func WriteHTML(w io.Writer, page Page) error {
	if err := htmlTmpl.Execute(w, page); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}
