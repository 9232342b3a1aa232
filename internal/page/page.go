package page

import (
	"strings"
	"time"
)

// Page is the outcome of a single GET issued by the scraper.
type Page struct {
	ID           string
	URL          string
	FinalURL     string // URL after redirects
	StatusCode   int
	Headers      map[string][]string
	Body         []byte
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "SearchInterstitial"
	FetchedAt    time.Time
}

// Header returns the first value for key, matching case-insensitively.
func (p *Page) Header(key string) string {
	if p == nil {
		return ""
	}
	if vals, ok := p.Headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	lowerKey := strings.ToLower(key)
	for k, vals := range p.Headers {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// OK reports whether the response carried a 2xx status.
func (p *Page) OK() bool {
	return p != nil && p.StatusCode >= 200 && p.StatusCode < 300
}

// IsHTML reports whether the response declared an HTML content type. A
// missing Content-Type is treated as HTML, matching how browsers sniff SERPs.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.Header("Content-Type"))
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
