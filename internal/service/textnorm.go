package service

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SimilarityFunc scores two normalized strings from 0 to 100.
type SimilarityFunc func(a, b string) float64

// letters that do not decompose into a base letter plus marks
var ligatures = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "œ", "oe", "ø", "o", "ł", "l", "đ", "d", "þ", "th",
)

// NormalizeText lower-cases s, strips accents, drops everything that is not
// a letter, digit or space and collapses whitespace.
func NormalizeText(s string) string {
	lowered := strings.ToLower(s)
	plain := lowered
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, ligatures.Replace(lowered)); err == nil {
		plain = out
	}

	var b strings.Builder
	b.Grow(len(plain))
	for _, r := range plain {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SimilarText returns the percentage of characters shared by a and b, counted
// by repeatedly taking the longest common substring and recursing on both
// sides of it.
func SimilarText(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	common := similarChars(ra, rb)
	return float64(common*2) * 100 / float64(len(ra)+len(rb))
}

func similarChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	best, posA, posB := 0, 0, 0
	for i := range a {
		for j := range b {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > best {
				best, posA, posB = k, i, j
			}
		}
	}
	if best == 0 {
		return 0
	}
	return best +
		similarChars(a[:posA], b[:posB]) +
		similarChars(a[posA+best:], b[posB+best:])
}

// LevenshteinSimilarity converts edit distance into a 0-100 score relative to
// the longer string.
func LevenshteinSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}

// SimilarityByName maps a config value to a scorer; unknown names get SimilarText.
func SimilarityByName(name string) SimilarityFunc {
	if strings.EqualFold(strings.TrimSpace(name), "levenshtein") {
		return LevenshteinSimilarity
	}
	return SimilarText
}
