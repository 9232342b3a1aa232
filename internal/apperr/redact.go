package apperr

import (
	"regexp"
	"strings"
)

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|openai[_-]?api[_-]?key|key)\b\s*[:=]\s*[^\s"'&]+`)
	// OpenAI style secret keys, including project keys.
	skKeyRe = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}`)
	// Credentials embedded in URLs such as proxies or DSNs.
	urlUserinfoRe = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.\-]*://)[^/\s:@]+:[^/\s@]+@`)
)

// Redact removes obvious secret-bearing substrings from text that is about
// to be shown to a user or logged.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "$1=<redacted>")
	out = skKeyRe.ReplaceAllString(out, "sk-<redacted>")
	out = urlUserinfoRe.ReplaceAllString(out, "${1}<redacted>@")
	return strings.TrimSpace(out)
}
