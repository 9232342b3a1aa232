// Package outreach turns search snippets into structured profile records
// and drafts a networking message for each.
package outreach

import (
	"slices"
	"strings"
	"unicode"
)

// Field names as the extraction prompt asks for them.
const (
	FieldFullName       = "Full Name"
	FieldJobTitle       = "Current Job Title"
	FieldCompany        = "Company Name"
	FieldIndustry       = "Industry"
	FieldSkills         = "Key Skills and Interests"
	FieldRecentActivity = "Recent Activity Summary"

	FieldMessage    = "message"
	FieldProfileURL = "profile_url"
)

// ProfileFields are the attributes extracted from a snippet, in prompt order.
var ProfileFields = []string{
	FieldFullName,
	FieldJobTitle,
	FieldCompany,
	FieldIndustry,
	FieldSkills,
	FieldRecentActivity,
}

// Record is one profile's extracted fields plus, after drafting, its message.
// No field is required.
type Record map[string]string

// Get returns the value for field, or fallback when it is missing or blank.
func (r Record) Get(field, fallback string) string {
	if v := strings.TrimSpace(r[field]); v != "" {
		return v
	}
	return fallback
}

// SetDefault sets field to value unless it already holds a non-blank value.
func (r Record) SetDefault(field, value string) {
	if strings.TrimSpace(r[field]) == "" && value != "" {
		r[field] = value
	}
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var canonicalFields = func() map[string]string {
	m := make(map[string]string)
	for _, f := range slices.Concat(ProfileFields, []string{FieldMessage, FieldProfileURL}) {
		m[foldKey(f)] = f
	}
	// Shorter spellings models commonly use.
	m["name"] = FieldFullName
	m["jobtitle"] = FieldJobTitle
	m["title"] = FieldJobTitle
	m["company"] = FieldCompany
	m["skillsandinterests"] = FieldSkills
	m["keyskills"] = FieldSkills
	m["recentactivity"] = FieldRecentActivity
	m["linkedinprofileurl"] = FieldProfileURL
	m["url"] = FieldProfileURL
	return m
}()

// CanonicalField maps spellings like "full_name" or "fullName" onto the
// field constant. Unknown keys are returned unchanged.
func CanonicalField(key string) string {
	if f, ok := canonicalFields[foldKey(key)]; ok {
		return f
	}
	return key
}

func foldKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
