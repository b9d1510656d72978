package filter

import (
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/fingerprint"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/normalize"
)

// DedupConfig selects which dedup stages run. A zero max disables that stage.
type DedupConfig struct {
	DedupPairs     bool `yaml:"dedup_pairs"`
	MaxSourceDedup int  `yaml:"max_source_dedup"`
	MaxTargetDedup int  `yaml:"max_target_dedup"`
}

// Enabled reports whether any stage is configured.
func (c DedupConfig) Enabled() bool {
	return c.DedupPairs || c.MaxSourceDedup > 0 || c.MaxTargetDedup > 0
}

// DedupFilter drops repeated pairs, and sources or targets seen too often.
//
// Its hash state grows without bound for the lifetime of the instance. One
// instance per shard keeps memory bounded by shard size but only dedups within
// the shard; a single instance shared through Synchronized dedups exactly
// across shards at the cost of serializing every check.
type DedupFilter struct {
	cfg DedupConfig

	seenPairs map[uint64]struct{}
	srcCounts map[uint64]int
	tgtCounts map[uint64]int
}

// NewDedupFilter creates a dedup filter with empty state.
func NewDedupFilter(cfg DedupConfig) *DedupFilter {
	return &DedupFilter{
		cfg:       cfg,
		seenPairs: make(map[uint64]struct{}),
		srcCounts: make(map[uint64]int),
		tgtCounts: make(map[uint64]int),
	}
}

// Name implements Filter.
func (f *DedupFilter) Name() string {
	return "dedup"
}

// FilterLine runs the pair, target and source stages in that order and stops
// at the first drop. The order is fixed: it decides which counter a line that
// is both a pair and a target duplicate is charged to.
func (f *DedupFilter) FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool) {
	var normSrc, normTgt string
	if line.HasTgt() && (f.cfg.DedupPairs || f.cfg.MaxTargetDedup > 0) {
		normTgt = normalize.ForDedup(*line.Tgt)
	}
	if f.cfg.DedupPairs || f.cfg.MaxSourceDedup > 0 {
		normSrc = normalize.ForDedup(line.Src)
	}

	if f.cfg.DedupPairs && line.HasTgt() {
		h := fingerprint.Pair(normSrc, normTgt)
		if _, seen := f.seenPairs[h]; seen {
			c.PairDedup++
			return DatasetLine{}, false
		}
		f.seenPairs[h] = struct{}{}
	}

	if f.cfg.MaxTargetDedup > 0 && line.HasTgt() {
		h := fingerprint.Text(normTgt)
		if f.tgtCounts[h] >= f.cfg.MaxTargetDedup {
			c.TargetDedup++
			return DatasetLine{}, false
		}
		f.tgtCounts[h]++
	}

	if f.cfg.MaxSourceDedup > 0 {
		h := fingerprint.Text(normSrc)
		if f.srcCounts[h] >= f.cfg.MaxSourceDedup {
			c.SourceDedup++
			return DatasetLine{}, false
		}
		f.srcCounts[h]++
	}

	return line, true
}

// DedupStats reports the size of a DedupFilter's state.
type DedupStats struct {
	Pairs   int
	Sources int
	Targets int
}

// Stats returns the number of distinct keys currently held.
func (f *DedupFilter) Stats() DedupStats {
	return DedupStats{
		Pairs:   len(f.seenPairs),
		Sources: len(f.srcCounts),
		Targets: len(f.tgtCounts),
	}
}

// TargetCount returns how many times a normalized target has been counted.
func (f *DedupFilter) TargetCount(tgt string) int {
	return f.tgtCounts[fingerprint.Text(normalize.ForDedup(tgt))]
}

// SourceCount returns how many times a normalized source has been counted.
func (f *DedupFilter) SourceCount(src string) int {
	return f.srcCounts[fingerprint.Text(normalize.ForDedup(src))]
}
