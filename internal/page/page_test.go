package page

import "testing"

func TestPage_Header(t *testing.T) {
	p := &Page{Headers: map[string][]string{"content-type": {"text/html; charset=utf-8"}}}
	if got := p.Header("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("expected case-insensitive header lookup, got %q", got)
	}
	if got := p.Header("X-Missing"); got != "" {
		t.Errorf("expected empty header, got %q", got)
	}

	var nilPage *Page
	if nilPage.Header("Server") != "" {
		t.Errorf("expected nil page to yield empty header")
	}
}

func TestPage_OKAndHTML(t *testing.T) {
	cases := []struct {
		status int
		ct     string
		ok     bool
		html   bool
	}{
		{200, "text/html", true, true},
		{204, "", true, true},
		{302, "text/html", false, true},
		{500, "application/json", false, false},
	}
	for _, c := range cases {
		p := &Page{StatusCode: c.status, Headers: map[string][]string{}}
		if c.ct != "" {
			p.Headers["Content-Type"] = []string{c.ct}
		}
		if p.OK() != c.ok {
			t.Errorf("status %d: expected OK=%v", c.status, c.ok)
		}
		if p.IsHTML() != c.html {
			t.Errorf("content type %q: expected IsHTML=%v", c.ct, c.html)
		}
	}
}
