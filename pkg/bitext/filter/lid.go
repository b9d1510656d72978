package filter

import (
	"strings"
	"unicode"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/normalize"
)

// LanguageIdentifier scores how likely text is to be in the given label.
// Model inference (fastText or otherwise) lives behind this interface.
type LanguageIdentifier interface {
	Score(text, label string) float64
}

// LIDConfig configures a LIDFilter. A zero threshold disables a side.
type LIDConfig struct {
	SrcLabel     string
	TgtLabel     string
	SrcThreshold float64
	TgtThreshold float64
}

// LIDFilter drops lines whose source or target does not look like the
// expected language. Scores are recorded on surviving lines.
type LIDFilter struct {
	cfg LIDConfig
	id  LanguageIdentifier
}

// NewLIDFilter creates a LID filter backed by id.
func NewLIDFilter(cfg LIDConfig, id LanguageIdentifier) *LIDFilter {
	return &LIDFilter{cfg: cfg, id: id}
}

// Name implements Filter.
func (f *LIDFilter) Name() string {
	return "lid"
}

// FilterLine implements Filter.
func (f *LIDFilter) FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool) {
	if f.cfg.SrcThreshold > 0 {
		p := f.id.Score(normalize.ForLID(line.Src), f.cfg.SrcLabel)
		if p < f.cfg.SrcThreshold {
			c.LIDThreshold++
			return DatasetLine{}, false
		}
		line.SrcLIDProb = &p
	}

	if f.cfg.TgtThreshold > 0 && line.HasTgt() {
		p := f.id.Score(normalize.ForLID(*line.Tgt), f.cfg.TgtLabel)
		if p < f.cfg.TgtThreshold {
			c.LIDThreshold++
			return DatasetLine{}, false
		}
		line.TgtLIDProb = &p
	}

	return line, true
}

// scriptTables maps ISO 15924 codes to the Unicode scripts they accept.
var scriptTables = map[string][]*unicode.RangeTable{
	"Latn": {unicode.Latin},
	"Cyrl": {unicode.Cyrillic},
	"Grek": {unicode.Greek},
	"Arab": {unicode.Arabic},
	"Hebr": {unicode.Hebrew},
	"Armn": {unicode.Armenian},
	"Geor": {unicode.Georgian},
	"Ethi": {unicode.Ethiopic},
	"Deva": {unicode.Devanagari},
	"Beng": {unicode.Bengali},
	"Guru": {unicode.Gurmukhi},
	"Gujr": {unicode.Gujarati},
	"Orya": {unicode.Oriya},
	"Taml": {unicode.Tamil},
	"Telu": {unicode.Telugu},
	"Knda": {unicode.Kannada},
	"Mlym": {unicode.Malayalam},
	"Sinh": {unicode.Sinhala},
	"Thai": {unicode.Thai},
	"Laoo": {unicode.Lao},
	"Tibt": {unicode.Tibetan},
	"Mymr": {unicode.Myanmar},
	"Khmr": {unicode.Khmer},
	"Hang": {unicode.Hangul, unicode.Han},
	"Hans": {unicode.Han},
	"Hant": {unicode.Han},
	"Jpan": {unicode.Han, unicode.Hiragana, unicode.Katakana},
	"Tfng": {unicode.Tifinagh},
}

// ScriptIdentifier scores text by the share of its letters written in the
// script named by a label. Labels are either a script code ("Cyrl") or a
// language code with a script suffix ("srp_Cyrl").
type ScriptIdentifier struct{}

// ScriptOf extracts the script code from a language code such as "eng_Latn".
func ScriptOf(lang string) string {
	if i := strings.LastIndexByte(lang, '_'); i >= 0 {
		return lang[i+1:]
	}
	return lang
}

// Supports reports whether a label's script is known.
func (ScriptIdentifier) Supports(label string) bool {
	_, ok := scriptTables[ScriptOf(label)]
	return ok
}

// Score implements LanguageIdentifier. Text without letters scores 0.
func (ScriptIdentifier) Score(text, label string) float64 {
	tables, ok := scriptTables[ScriptOf(label)]
	if !ok {
		return 0
	}

	var letters, matched int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.In(r, tables...) {
			matched++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(matched) / float64(letters)
}
