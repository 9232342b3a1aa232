package bypass

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/FranksOps/scout/internal/page"
)

// Detector examines a fetched page to determine if a bot protection mechanism
// or a search-engine interstitial replaced the content we asked for.
type Detector func(p *page.Page) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectSearchInterstitial,
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze runs the page through all provided detectors. It updates the page
// in place with the detection status and returns true if any detection triggered.
func Analyze(p *page.Page, detectors []Detector) bool {
	if p == nil {
		return false
	}
	for _, d := range detectors {
		if detected, source := d(p); detected {
			p.DetectedBot = true
			p.DetectionSrc = source
			return true
		}
	}
	p.DetectedBot = false
	p.DetectionSrc = ""
	return false
}

// detectSearchInterstitial catches the "unusual traffic" captcha page search
// engines serve instead of results, which is usually reached via a redirect
// to a /sorry/ path and may come back as 200 or 429.
func detectSearchInterstitial(p *page.Page) (bool, string) {
	if strings.Contains(p.FinalURL, "/sorry/") {
		return true, "SearchInterstitial"
	}
	if p.StatusCode == http.StatusTooManyRequests || p.StatusCode == http.StatusOK {
		if bytes.Contains(p.Body, []byte("detected unusual traffic")) ||
			(bytes.Contains(p.Body, []byte("g-recaptcha")) && bytes.Contains(p.Body, []byte("/sorry/"))) {
			return true, "SearchInterstitial"
		}
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(p *page.Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden && p.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(p.Header("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	for _, sig := range []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(p *page.Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(p.Header("Server")), "akamai") {
		return true, "Akamai"
	}
	// generic "Reference #" block page
	if bytes.Contains(p.Body, []byte("Reference #")) && bytes.Contains(p.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(p *page.Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(p.Header("Server")), "datadome") {
		return true, "DataDome"
	}
	if p.Header("X-DataDome") != "" || p.Header("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(p.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(p.Body, []byte("datadome")) {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(p *page.Page) (bool, string) {
	if p.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if p.Header("X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if bytes.Contains(p.Body, []byte("client.perimeterx.net")) ||
		bytes.Contains(p.Body, []byte("px-captcha")) ||
		bytes.Contains(p.Body, []byte("_pxBlock")) {
		return true, "PerimeterX"
	}
	return false, ""
}
