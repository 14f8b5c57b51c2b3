// Package textnorm canonicalizes free text received from the storefront API so
// that display strings compare equal regardless of the source encoding variant.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningDiacriticals is the Combining Diacritical Marks block (U+0300–U+036F).
// Marks outside the block, such as Arabic harakat, are kept.
var combiningDiacriticals = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

func newStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(combiningDiacriticals)))
}

// Strip decomposes s (NFD) and removes combining diacritical marks.
// Strip(Strip(s)) == Strip(s).
//
// Examples:
//   - "caf\u00e9" (precomposed) → "cafe"
//   - "cafe\u0301" (e + combining acute) → "cafe"
//   - "Tétouan" → "Tetouan"
func Strip(s string) string {
	if s == "" {
		return s
	}
	out, _, err := transform.String(newStripper(), s)
	if err != nil {
		return s
	}
	return out
}

// Fold returns a lookup key for s: stripped, lowercased and with surrounding
// and repeated whitespace collapsed. Used to match zone and category names
// typed by a user against the catalog.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(Strip(s))), " ")
}
