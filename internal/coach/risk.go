package coach

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// riskKeywords are the canonical Spanish risk terms. Substring containment
// over normalized text; false positives are acceptable.
var riskKeywords = []string{
	"suicid",
	"autoles",
	"me quiero morir",
	"matarme",
	"quitarme la vida",
	"lastimarme",
	"hacerme dano",
	"danar a alguien",
	"matar a alguien",
}

// DetectRisk reports whether text contains risk-indicating language
// (self-harm, suicide, harming others). Matching is case- and
// accent-insensitive.
func DetectRisk(text string) bool {
	t := normalizeText(text)
	for _, k := range riskKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// normalizeText lowercases and strips diacritics: NFKD decomposition followed
// by removal of combining marks, so "dañó" and "dano" compare equal.
func normalizeText(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
