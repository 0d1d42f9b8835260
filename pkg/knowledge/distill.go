package knowledge

import (
	"strings"
	"unicode"
)

// DefaultMaxRules caps the rules kept from one document.
const DefaultMaxRules = 24

// keywords mark sentences that carry layout guidance.
var keywords = []string{
	"logo", "colour", "color", "palette", "font", "typeface", "typography",
	"margin", "spacing", "clear space", "safe zone", "alignment", "align",
	"grid", "contrast", "minimum", "maximum", "must", "never", "always",
	"avoid", "should", "do not", "don't", "#",
}

// Distill extracts up to max guideline sentences from text. A sentence is
// kept when it mentions a design keyword and has between 12 and 240
// characters. Duplicates (case-insensitive) are dropped and order is kept.
// max <= 0 means [DefaultMaxRules].
func Distill(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxRules
	}

	var rules []string
	seen := make(map[string]bool)
	for _, s := range sentences(text) {
		if len(s) < 12 || len(s) > 240 {
			continue
		}
		lower := strings.ToLower(s)
		if seen[lower] || !hasKeyword(lower) {
			continue
		}
		seen[lower] = true
		rules = append(rules, s)
		if len(rules) == max {
			break
		}
	}
	return rules
}

func hasKeyword(lower string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func sentences(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		s := strings.TrimFunc(cur.String(), func(r rune) bool {
			return unicode.IsSpace(r) || r == '-' || r == '*' || r == '•'
		})
		if s != "" {
			out = append(out, strings.Join(strings.Fields(s), " "))
		}
		cur.Reset()
	}
	for _, r := range text {
		switch r {
		case '\n':
			flush()
		case '.', '!', '?':
			cur.WriteRune(r)
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
