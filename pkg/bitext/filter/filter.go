// Package filter implements line-level bitext filters and their sequencing.
//
// Every filter follows one contract: FilterLine returns the line and true to keep
// it, or false to drop it, in which case the filter has already incremented the
// counter that explains the drop. A Chain applies filters in caller order and
// stops at the first drop, so later filters never see or record dropped lines.
// Filter order is part of the result: swapping dedup and length filtering
// changes the statistics for the same input.
package filter

import (
	"sync"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
)

// DatasetLine is one sentence pair at a point in the pipeline.
type DatasetLine struct {
	Src    string
	Tgt    *string // nil for monolingual input
	Corpus string
	Score  *float64

	// LID probabilities, recorded for debugging only.
	SrcLIDProb *float64
	TgtLIDProb *float64
}

// Pair builds a bilingual line.
func Pair(src, tgt string) DatasetLine {
	return DatasetLine{Src: src, Tgt: &tgt}
}

// Mono builds a monolingual line.
func Mono(src string) DatasetLine {
	return DatasetLine{Src: src}
}

// HasTgt reports whether the line carries a target side.
func (l DatasetLine) HasTgt() bool {
	return l.Tgt != nil
}

// TgtText returns the target text, or "" for monolingual lines.
func (l DatasetLine) TgtText() string {
	if l.Tgt == nil {
		return ""
	}
	return *l.Tgt
}

// Filter decides whether a line survives.
type Filter interface {
	Name() string
	FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool)
}

// Chain applies filters in order, short-circuiting on the first drop.
type Chain []Filter

// FilterLine implements Filter.
func (ch Chain) FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool) {
	for _, f := range ch {
		var ok bool
		line, ok = f.FilterLine(line, c)
		if !ok {
			return DatasetLine{}, false
		}
	}
	return line, true
}

// Name implements Filter.
func (ch Chain) Name() string {
	return "chain"
}

// Names lists the filters in application order.
func (ch Chain) Names() []string {
	names := make([]string, len(ch))
	for i, f := range ch {
		names[i] = f.Name()
	}
	return names
}

// Synchronized serializes access to f so that one instance can be shared by
// several goroutines. Every FilterLine call on the wrapper holds a single lock.
// With stateful filters the lock order decides which goroutine sees a line
// first, so per-stage counts can vary between runs while the kept total does not.
func Synchronized(f Filter) Filter {
	return &syncFilter{inner: f}
}

type syncFilter struct {
	mu    sync.Mutex
	inner Filter
}

func (s *syncFilter) Name() string {
	return s.inner.Name()
}

func (s *syncFilter) FilterLine(line DatasetLine, c *counts.Counts) (DatasetLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.FilterLine(line, c)
}
