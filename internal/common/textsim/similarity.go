// Package textsim scores how closely two names match.
package textsim

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PrefixBonus is added when one normalized name starts with the other.
const PrefixBonus = 0.15

// Normalize lowercases, strips diacritics, replaces punctuation with spaces
// and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Similarity returns a score in [0,1]. Identical normalized names score 1.
// Otherwise it is the Jaccard index of the token sets plus PrefixBonus when
// one name is a prefix of the other.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	setA := tokenSet(na)
	setB := tokenSet(nb)
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	score := float64(inter) / float64(union)

	if strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na) {
		score += PrefixBonus
	}
	return clamp(score)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
