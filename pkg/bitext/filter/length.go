package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/gordicaleksa/Open-NLLB/internal/logging"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
)

// LengthConfig bounds sentence lengths. Nil bounds are disabled.
//
// Lengths are measured in characters scaled by a per-language factor, so a
// script that packs more information per character (CJK, for instance) can be
// compared against Latin text on an equal footing.
type LengthConfig struct {
	MinLen            *int               `yaml:"min_len"`
	MaxLen            *int               `yaml:"max_len"`
	MaxLenRatio       *float64           `yaml:"max_len_ratio"`
	MinSrcUniqueRatio *float64           `yaml:"min_src_unique_ratio"`
	LengthFactors     map[string]float64 `yaml:"length_factors"`
	SrcLang           string             `yaml:"-"`
	TgtLang           string             `yaml:"-"`
}

// bounded reports whether any length bound is configured.
func (c LengthConfig) bounded() bool {
	return c.MinLen != nil || c.MaxLen != nil || c.MaxLenRatio != nil || c.MinSrcUniqueRatio != nil
}

// LengthFilter drops empty lines and lines outside the configured length
// bounds. It holds no mutable state and can be shared between shards.
type LengthFilter struct {
	cfg       LengthConfig
	srcFactor float64
	tgtFactor float64
}

// NewLengthFilter resolves the language factors once. A language without a
// factor is logged and measured with factor 1.0.
func NewLengthFilter(cfg LengthConfig) *LengthFilter {
	f := &LengthFilter{cfg: cfg, srcFactor: 1, tgtFactor: 1}
	if !cfg.bounded() {
		return f
	}
	f.srcFactor = lookupFactor(cfg.LengthFactors, cfg.SrcLang)
	if cfg.TgtLang != "" {
		f.tgtFactor = lookupFactor(cfg.LengthFactors, cfg.TgtLang)
	}
	return f
}

func lookupFactor(factors map[string]float64, lang string) float64 {
	if v, ok := factors[lang]; ok && v > 0 {
		return v
	}
	logging.Warn("missing length factor, using 1.0", "lang", lang)
	return 1
}

// Name implements Filter.
func (f *LengthFilter) Name() string {
	return "length"
}

// FilterLine implements Filter.
func (f *LengthFilter) FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool) {
	if line.Src == "" || (line.HasTgt() && *line.Tgt == "") {
		c.Empty++
		return DatasetLine{}, false
	}
	if !f.cfg.bounded() {
		return line, true
	}

	srcLen := effectiveLength(line.Src, f.srcFactor)
	if !f.withinBounds(srcLen, c) {
		return DatasetLine{}, false
	}

	if line.HasTgt() {
		tgtLen := effectiveLength(*line.Tgt, f.tgtFactor)
		if !f.withinBounds(tgtLen, c) {
			return DatasetLine{}, false
		}

		if f.cfg.MaxLenRatio != nil {
			ratio := max(srcLen, tgtLen) / min(srcLen, tgtLen)
			if ratio > *f.cfg.MaxLenRatio {
				c.MaxLenRatio++
				return DatasetLine{}, false
			}
		}
	}

	if f.cfg.MinSrcUniqueRatio != nil {
		if uniqueTokenRatio(line.Src) < *f.cfg.MinSrcUniqueRatio {
			c.MinSrcUniqueRatio++
			return DatasetLine{}, false
		}
	}

	return line, true
}

func (f *LengthFilter) withinBounds(length float64, c *counts.Counts) bool {
	if f.cfg.MinLen != nil && length < float64(*f.cfg.MinLen) {
		c.MinLen++
		return false
	}
	if f.cfg.MaxLen != nil && length > float64(*f.cfg.MaxLen) {
		c.MaxLen++
		return false
	}
	return true
}

// effectiveLength is floored at 1 so the ratio check never divides by zero.
func effectiveLength(s string, factor float64) float64 {
	return max(1, float64(utf8.RuneCountInString(s))*factor)
}

// uniqueTokenRatio is the share of distinct whitespace tokens in s.
func uniqueTokenRatio(s string) float64 {
	toks := strings.Fields(s)
	if len(toks) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		seen[t] = struct{}{}
	}
	return float64(len(seen)) / float64(len(toks))
}
