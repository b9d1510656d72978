// Package normalize canonicalizes sentences before they are compared or scored.
//
// ForDedup produces the comparison form used for fingerprinting: two lines that
// differ only in case, whitespace, digits, punctuation or diacritics normalize to
// the same string. ForLID is lighter and only strips noise that confuses language
// identification (markup, URLs, IP addresses, digits, punctuation).
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unicodePunct maps "smart" and full-width punctuation to ASCII equivalents.
var unicodePunct = map[rune]string{
	'，': ",",
	'。': ".",
	'、': ",",
	'„': `"`,
	'”': `"`,
	'“': `"`,
	'«': `"`,
	'»': `"`,
	'１': `"`,
	'」': `"`,
	'「': `"`,
	'《': `"`,
	'》': `"`,
	'´': "'",
	'∶': ":",
	'：': ":",
	'？': "?",
	'！': "!",
	'（': "(",
	'）': ")",
	'；': ";",
	'–': "-",
	'—': " - ",
	'．': ". ",
	'～': "~",
	'’': "'",
	'…': "...",
	'━': "-",
	'〈': "<",
	'〉': ">",
	'【': "[",
	'】': "]",
	'％': "%",
	'►': "-",
}

var punctReplacer = newPunctReplacer()

func newPunctReplacer() *strings.Replacer {
	pairs := make([]string, 0, 2*len(unicodePunct))
	for r, ascii := range unicodePunct {
		pairs = append(pairs, string(r), ascii)
	}
	return strings.NewReplacer(pairs...)
}

var (
	urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|ftp://|www\.)\S+`)
	ipPattern  = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
)

// ForDedup returns the comparison form of a line. The result is stable under
// re-application: ForDedup(ForDedup(x)) == ForDedup(x).
func ForDedup(text string) string {
	line := collapseSpace(text)
	if line == "" {
		return ""
	}

	line = strings.ToLower(line)
	line = stripMarks(line)

	// Digits first: the punctuation table maps full-width one to a quote.
	line = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return '0'
		}
		return r
	}, line)

	line = punctReplacer.Replace(line)
	line = strings.Map(func(r rune) rune {
		if isPunctOrControl(r) {
			return -1
		}
		return r
	}, line)

	// Compose last: the removals above can leave composable neighbours
	// (Hangul jamo split by a period). Composition never produces a rune
	// that an earlier step would remove.
	line = norm.NFC.String(line)
	return collapseSpace(line)
}

// ForLID prepares a line for language identification scoring.
func ForLID(text string) string {
	line := stripMarkup(text)
	line = urlPattern.ReplaceAllString(line, " ")
	line = ipPattern.ReplaceAllString(line, " ")
	line = strings.ToLower(line)
	line = punctReplacer.Replace(line)
	line = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || isPunctOrControl(r) {
			return -1
		}
		return r
	}, line)
	return collapseSpace(line)
}

// isPunctOrControl reports Unicode punctuation and C0/DEL/C1 control characters.
func isPunctOrControl(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsControl(r)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripMarks decomposes s canonically and drops nonspacing marks. The result
// stays decomposed; callers recompose once all other removals are done.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripMarkup drops tags and decodes entities, keeping only text content.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	b.Grow(len(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
