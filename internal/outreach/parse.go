package outreach

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/kaptinlin/jsonrepair"
	"github.com/kaptinlin/jsonschema"
)

const opParse = "outreach.parse"

// profileSchema accepts any object whose known fields are a string, a list
// of strings or null. Other keys pass through.
var profileSchema = func() *jsonschema.Schema {
	field := map[string]any{
		"type":  []string{"string", "array", "null"},
		"items": map[string]any{"type": "string"},
	}
	props := make(map[string]any, len(ProfileFields))
	for _, f := range ProfileFields {
		props[f] = field
	}
	raw, err := json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	})
	if err != nil {
		panic(err)
	}
	schema, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		panic(fmt.Sprintf("outreach: compile profile schema: %v", err))
	}
	return schema
}()

// ParseRecord turns the Structurer's text into a Record. The first code
// fence is used wherever it sits, prose around a bare object is cut away and
// slightly broken JSON is repaired. Lists are joined with ", ",
// nulls and blanks are dropped, and other scalars are stringified. Anything
// that is not a JSON object is a Model error.
func ParseRecord(raw string) (Record, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, apperr.Newf(apperr.KindModel, opParse, "empty model output")
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return nil, apperr.New(apperr.KindModel, opParse, fmt.Errorf("malformed output: %w", err))
		}
		if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
			return nil, apperr.New(apperr.KindModel, opParse, fmt.Errorf("malformed output after repair: %w", err))
		}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, apperr.Newf(apperr.KindModel, opParse, "expected a JSON object, got %s", jsonType(decoded))
	}

	// An exact field name beats any alias; among aliases the first in
	// sorted order wins.
	normalized := make(map[string]any, len(obj))
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		key := CanonicalField(k)
		if _, exists := normalized[key]; exists && key != k {
			continue
		}
		normalized[key] = obj[k]
	}

	if result := profileSchema.Validate(normalized); !result.IsValid() {
		return nil, apperr.Newf(apperr.KindModel, opParse, "output does not match profile schema: %s",
			strings.Join(schemaProblems(result), "; "))
	}

	rec := make(Record, len(normalized))
	for k, v := range normalized {
		if s := flatten(v); s != "" {
			rec[k] = s
		}
	}
	return rec, nil
}

// extractJSON pulls the JSON payload out of a model reply.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return s
	}
	if i := strings.Index(s, "```"); i >= 0 {
		body := s[i+3:]
		// drop the info string, e.g. "json"
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		} else {
			body = strings.TrimPrefix(body, "json")
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}

	if start := strings.IndexByte(s, '{'); start > 0 {
		s = s[start:]
	}
	// Trailing prose is cut only when what remains is a complete object, so
	// a reply truncated mid-object is still left to the repair step.
	if end := strings.LastIndexByte(s, '}'); end >= 0 && end < len(s)-1 && json.Valid([]byte(s[:end+1])) {
		s = s[:end+1]
	}
	return s
}

// schemaProblems names each failing field with its filled-in message.
func schemaProblems(result *jsonschema.EvaluationResult) []string {
	list := result.ToList(false)
	var msgs []string
	for _, d := range list.Details {
		if d.Valid {
			continue
		}
		field := strings.TrimPrefix(d.InstanceLocation, "/")
		for _, msg := range d.Errors {
			msgs = append(msgs, field+": "+msg)
		}
	}
	if len(msgs) == 0 {
		for _, msg := range list.Errors {
			msgs = append(msgs, msg)
		}
	}
	sort.Strings(msgs)
	return msgs
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
