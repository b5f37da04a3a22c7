package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var letterRunRegex = regexp.MustCompile(`[a-z]+`)

// decompose, drop combining marks, recompose: "Côté" becomes "Cote"
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics replaces accented letters with their base letters so
// that accented and unaccented spellings of the same name compare
// equal.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

var honorifics = map[string]bool{
	"mr":   true,
	"mrs":  true,
	"ms":   true,
	"miss": true,
	"dr":   true,
	"prof": true,
	"mme":  true,
}

// NormalizeName lower-cases a person's name, folds diacritics and
// strips everything except letters, so punctuation, spacing,
// honorifics and middle initials all collapse to the same string:
// "John D. SMITH" and "Dr. john smith" both become "johnsmith", and
// "Côté" matches "Cote".
func NormalizeName(name string) string {
	tokens := letterRunRegex.FindAllString(strings.ToLower(FoldDiacritics(name)), -1)
	var kept []string
	for _, tok := range tokens {
		if len(tok) == 1 || honorifics[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		// single-letter-only input, keep whatever letters exist
		return strings.Join(tokens, "")
	}
	return strings.Join(kept, "")
}

// CollapseWhitespace trims a string and replaces interior runs of
// whitespace with single spaces.
func CollapseWhitespace(s string) string {
	s = strings.Trim(s, " \n\t ")
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// SplitCommaName splits directory cells of the form
// "Smith, John CPA, CA" into last name, first name and trailing
// designation text. Cells without a comma return the whole string as
// the last name.
func SplitCommaName(cell string) (last, first, designation string) {
	cell = CollapseWhitespace(cell)
	comma := strings.Index(cell, ",")
	if comma < 0 {
		return cell, "", ""
	}

	last = strings.TrimSpace(cell[:comma])
	rest := strings.TrimSpace(cell[comma+1:])
	if rest == "" {
		return last, "", ""
	}

	// the first token after the comma is the first name, anything after
	// it is credential text ("CPA, CA", "CPA, CGA", ...)
	space := strings.IndexAny(rest, " \t")
	if space < 0 {
		return last, rest, ""
	}
	first = rest[:space]
	designation = strings.Trim(strings.TrimSpace(rest[space+1:]), ",")
	return last, first, strings.TrimSpace(designation)
}

// SplitFullName splits "John Smith" style names on the last space.
func SplitFullName(full string) (first, last string) {
	full = CollapseWhitespace(full)
	idx := strings.LastIndex(full, " ")
	if idx < 0 {
		return "", full
	}
	return full[:idx], full[idx+1:]
}
