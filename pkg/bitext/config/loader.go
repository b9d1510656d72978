package config

import (
	"fmt"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/filter"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/internalerr"
)

// Components holds the filters built from a Config. Stateless filters are
// built once and shared; dedup state is created per chain unless the config
// asks for a global scope.
type Components struct {
	order  []string
	length *filter.LengthFilter
	lid    *filter.LIDFilter
	score  *filter.ScoreFilter

	dedupCfg    filter.DedupConfig
	sharedDedup filter.Filter
}

// Build constructs filter components. id is only consulted when LID
// filtering is enabled; nil selects the built-in script identifier in
// script mode.
func Build(cfg *Config, id filter.LanguageIdentifier) (*Components, error) {
	comp := &Components{
		order:    cfg.Filters,
		dedupCfg: cfg.Dedup.DedupConfig,
	}

	comp.length = filter.NewLengthFilter(filter.LengthConfig{
		MinLen:            cfg.Length.MinLen,
		MaxLen:            cfg.Length.MaxLen,
		MaxLenRatio:       cfg.Length.MaxLenRatio,
		MinSrcUniqueRatio: cfg.Length.MinSrcUniqueRatio,
		LengthFactors:     cfg.LengthFactors,
		SrcLang:           cfg.SrcLang,
		TgtLang:           cfg.TgtLang,
	})

	if cfg.LID.Enabled() {
		lidCfg := filter.LIDConfig{
			SrcLabel:     cfg.SrcLang,
			TgtLabel:     cfg.TgtLang,
			SrcThreshold: firstPositive(cfg.LID.SrcThreshold, cfg.LID.Threshold),
			TgtThreshold: firstPositive(cfg.LID.TgtThreshold, cfg.LID.Threshold),
		}
		if cfg.TgtLang == "" {
			lidCfg.TgtThreshold = 0
		}
		if id == nil {
			if cfg.LID.Mode != LIDModeScript {
				return nil, fmt.Errorf("%w: lid mode %q needs an identifier", internalerr.ErrInvalidConfig, cfg.LID.Mode)
			}
			script := filter.ScriptIdentifier{}
			for _, lang := range []string{cfg.SrcLang, cfg.TgtLang} {
				if lang != "" && !script.Supports(lang) {
					return nil, fmt.Errorf("%w: no script known for %q", internalerr.ErrInvalidConfig, lang)
				}
			}
			id = script
		}
		comp.lid = filter.NewLIDFilter(lidCfg, id)
	}

	if cfg.LaserThreshold != nil {
		comp.score = filter.NewScoreFilter(*cfg.LaserThreshold)
	}

	if cfg.Dedup.Scope == ScopeGlobal && comp.dedupCfg.Enabled() {
		comp.sharedDedup = filter.Synchronized(filter.NewDedupFilter(comp.dedupCfg))
	}

	return comp, nil
}

// NewChain returns the filter chain for one shard, in configured order.
func (c *Components) NewChain() filter.Chain {
	chain := make(filter.Chain, 0, len(c.order))
	for _, name := range c.order {
		switch name {
		case FilterLength:
			chain = append(chain, c.length)
		case FilterLID:
			if c.lid != nil {
				chain = append(chain, c.lid)
			}
		case FilterScore:
			if c.score != nil {
				chain = append(chain, c.score)
			}
		case FilterDedup:
			if c.sharedDedup != nil {
				chain = append(chain, c.sharedDedup)
			} else if c.dedupCfg.Enabled() {
				chain = append(chain, filter.NewDedupFilter(c.dedupCfg))
			}
		}
	}
	return chain
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
