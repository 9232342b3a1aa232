package outreach

import (
	"strings"
	"text/template"
)

const extractPrompt = `The following text is a public LinkedIn bio for a professional. Extract and format the key details.

LinkedIn Profile URL: {{.ProfileURL}}

Bio Text:
{{.Bio}}

Please extract:
- Full Name (if available)
- Current Job Title
- Company Name
- Industry (if mentioned)
- Key Skills and Interests (from bio text)
- Recent Activity Summary (if any posts or engagements are visible)

Provide the extracted details in a structured JSON format, using the names above as keys.`

const draftPrompt = `Write a short, engaging, and professional LinkedIn networking message.

- Recipient: {{.Name}}, {{.JobTitle}} at {{.Company}}
- Interests: {{.Interests}}
- Recent Activity: {{.Activity}}

Message should be friendly and professional.`

var (
	extractTmpl = template.Must(template.New("extract").Parse(extractPrompt))
	draftTmpl   = template.Must(template.New("draft").Parse(draftPrompt))
)

type extractVars struct {
	ProfileURL string
	Bio        string
}

type draftVars struct {
	Name      string
	JobTitle  string
	Company   string
	Interests string
	Activity  string
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
