package copywriter

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gnemet/CueForge/internal/i18n"
)

// A strategy attempts to recover the four point values from a raw reply. It
// is total: it never fails loudly, it just reports whether it could parse
// the reply at all. Strategies run in order; the first success wins.
type strategy func(string) (Points, bool)

var strategies = []strategy{
	parseStrictJSON,
	parseRelaxedLiteral,
	parseRegexSalvage,
}

// Parse recovers selling points from an untrusted model reply. Worst case is
// an empty map, for which the caller substitutes placeholder text.
func Parse(raw string) Points {
	raw = stripFences(raw)
	for _, s := range strategies {
		if pts, ok := s(raw); ok {
			return pts
		}
	}
	return Points{}
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseStrictJSON(s string) (Points, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return pointsFromMap(m), true
}

var (
	bareKeyPattern       = regexp.MustCompile(`[^'"](selling_point_[1-4])\s*:`)
	keyPattern           = regexp.MustCompile(`["']?(selling_point_[1-4])["']?\s*:`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// parseRelaxedLiteral tolerates the literal-expression syntax some models
// emit instead of JSON: single-quoted strings, unquoted keys, trailing
// commas. It rewrites the reply into strict JSON and parses that.
func parseRelaxedLiteral(s string) (Points, bool) {
	if !strings.Contains(s, "'") && !bareKeyPattern.MatchString(s) {
		return nil, false
	}
	fixed := strings.ReplaceAll(s, `'`, `"`)
	fixed = keyPattern.ReplaceAllString(fixed, `"$1":`)
	fixed = trailingCommaPattern.ReplaceAllString(fixed, "$1")
	return parseStrictJSON(fixed)
}

var salvagePatterns = func() map[string]*regexp.Regexp {
	pats := make(map[string]*regexp.Regexp, len(Keys))
	for _, key := range Keys {
		pats[key] = regexp.MustCompile(`(?s)['"]?` + key + `['"]?\s*:\s*['"](.*?)['"]`)
	}
	return pats
}()

// parseRegexSalvage is the last resort: per key, grab whatever sits between
// quotes after the key token, across newlines. It succeeds if it recovers
// anything at all.
func parseRegexSalvage(s string) (Points, bool) {
	pts := Points{}
	for _, key := range Keys {
		if m := salvagePatterns[key].FindStringSubmatch(s); m != nil {
			pts[key] = m[1]
		}
	}
	return pts, len(pts) > 0
}

func pointsFromMap(m map[string]any) Points {
	pts := Points{}
	for _, key := range Keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				pts[key] = s
			}
		}
	}
	return pts
}

var enumerationPattern = regexp.MustCompile(`^\d+\.?\s*`)

// Sanitize prepares one recovered value for display: strips a leading
// enumeration marker and replaces a double-encoded JSON value (the model
// nested the whole object into one field) with a readable error message.
func Sanitize(value, lang string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") && strings.Contains(trimmed, "selling_point") {
		return i18n.T(lang, "msg.ai_format_error")
	}
	return enumerationPattern.ReplaceAllString(value, "")
}
