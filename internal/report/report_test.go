package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/scout/internal/outreach"
	"github.com/FranksOps/scout/internal/storage"
)

var jane = outreach.Record{
	outreach.FieldFullName:   "Jane Doe",
	outreach.FieldJobTitle:   "Marketing Lead",
	outreach.FieldCompany:    "Acme",
	outreach.FieldProfileURL: "https://linkedin.com/in/jane",
	outreach.FieldMessage:    "Hi Jane, ...",
}

func TestNewCard_Fallbacks(t *testing.T) {
	c := NewCard(outreach.Record{outreach.FieldMessage: "Hi"})

	if got := c.Heading(); got != "Unknown - N/A at N/A" {
		t.Errorf("unexpected heading %q", got)
	}
	if c.ProfileURL != "#" {
		t.Errorf("expected # link, got %q", c.ProfileURL)
	}
	if c.Industry != "N/A" || c.Interests != "N/A" || c.Activity != "N/A" {
		t.Errorf("expected N/A detail fields, got %+v", c)
	}
	if c.Message != "Hi" {
		t.Errorf("expected message, got %q", c.Message)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, []outreach.Record{jane}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 1 || got[0]["message"] != "Hi Jane, ..." || got[0]["Full Name"] != "Jane Doe" {
		t.Errorf("unexpected json: %s", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, []outreach.Record{jane}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Jane Doe - Marketing Lead at Acme\n---------------------------------\n",
		"Profile:         https://linkedin.com/in/jane",
		"Industry:        N/A",
		"Hi Jane, ...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No profiles found.") {
		t.Errorf("expected empty notice, got %q", buf.String())
	}
}

func TestWriteHTML_Landing(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, NewPage("", "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>AI-Powered LinkedIn Networking Agent</title>") {
		t.Errorf("expected HTML title")
	}
	if !strings.Contains(out, ">Find Marketers in Shanghai (Public Profiles)</button>") {
		t.Errorf("expected trigger button")
	}
	if !strings.Contains(out, DefaultHint) {
		t.Errorf("expected hint text")
	}
	if strings.Contains(out, "No public profiles matched") {
		t.Errorf("landing page must not show an empty result notice")
	}
}

func TestWriteHTML_Records(t *testing.T) {
	hostile := outreach.Record{
		outreach.FieldFullName:   `<script>alert(1)</script>`,
		outreach.FieldProfileURL: "javascript:alert(1)",
		outreach.FieldMessage:    "</textarea><b>x</b>",
	}
	page := NewPage("Custom", "Go").WithRecords([]outreach.Record{jane, hostile})

	var buf bytes.Buffer
	if err := WriteHTML(&buf, page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<h3>Jane Doe - Marketing Lead at Acme</h3>") {
		t.Errorf("expected Jane heading")
	}
	if !strings.Contains(out, `href="https://linkedin.com/in/jane"`) {
		t.Errorf("expected profile link")
	}
	if strings.Contains(out, "<script>alert(1)</script>") || strings.Contains(out, "<b>x</b>") {
		t.Errorf("record values must be escaped")
	}
	if strings.Contains(out, `href="javascript:`) {
		t.Errorf("unsafe link scheme must be neutralized")
	}
}

func TestWriteHTML_Error(t *testing.T) {
	page := NewPage("", "").WithRecords([]outreach.Record{jane}).WithError("blocked", "bot wall detected")

	var buf bytes.Buffer
	if err := WriteHTML(&buf, page); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Run failed (blocked):") || !strings.Contains(out, "bot wall detected") {
		t.Errorf("expected error banner, got:\n%s", out)
	}
	if strings.Contains(out, "Jane Doe") {
		t.Errorf("error page must not show partial results")
	}
}

func TestGenerateSummary(t *testing.T) {
	now := time.Now()
	runs := []*storage.Run{
		{ID: "b", StartedAt: now.Add(time.Minute), Duration: 3 * time.Second, Records: []outreach.Record{jane, jane}},
		{ID: "a", StartedAt: now, Duration: time.Second, Records: []outreach.Record{jane}},
	}

	s := GenerateSummary(runs)
	if s.TotalRuns != 2 || s.TotalProfiles != 3 {
		t.Errorf("unexpected totals: %+v", s)
	}
	if !s.FirstRun.Equal(now) || !s.LastRun.Equal(now.Add(time.Minute)) {
		t.Errorf("unexpected bounds: %v - %v", s.FirstRun, s.LastRun)
	}
	if s.AvgDuration != 2*time.Second {
		t.Errorf("expected 2s average, got %v", s.AvgDuration)
	}

	var buf bytes.Buffer
	if err := WriteHistory(&buf, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Profiles:      3") {
		t.Errorf("expected profile total in history, got:\n%s", buf.String())
	}
}

func TestWriteHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistory(&buf, GenerateSummary(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No archived runs.") {
		t.Errorf("expected empty notice, got:\n%s", buf.String())
	}
}
