// Package pipeline drives a filter chain over aligned sentence streams.
//
// A run is synchronous and single-threaded. Parallelism comes from running
// several pipelines over different shards, each with its own filters and
// counts, and merging the counts afterwards with counts.Sum.
package pipeline

import (
	"context"
	"fmt"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/filter"
)

// ctxCheckInterval is how many lines are processed between context checks.
const ctxCheckInterval = 4096

// Source yields aligned lines. ok is false once the input is exhausted.
type Source interface {
	Next(ctx context.Context) (line filter.DatasetLine, ok bool, err error)
}

// Sink receives surviving lines in input order.
type Sink interface {
	Write(line filter.DatasetLine) error
}

// Run reads every line from src, applies chain, and writes survivors to sink.
// The first read or write error aborts the run; the counts accumulated so far
// are returned alongside it.
func Run(ctx context.Context, src Source, chain filter.Filter, sink Sink) (counts.Counts, error) {
	var c counts.Counts

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return c, err
			}
		}

		line, ok, err := src.Next(ctx)
		if err != nil {
			return c, fmt.Errorf("read line %d: %w", n+1, err)
		}
		if !ok {
			break
		}
		c.TotalBefore++

		line, keep := chain.FilterLine(line, &c)
		if !keep {
			continue
		}
		if err := sink.Write(line); err != nil {
			return c, fmt.Errorf("write line %d: %w", n+1, err)
		}
		c.TotalAfter++
	}

	return c, nil
}

// sliceSource serves lines from memory.
type sliceSource struct {
	lines []filter.DatasetLine
	pos   int
}

// Lines returns a Source over in-memory sentences. A nil tgt yields
// monolingual lines; otherwise src and tgt are paired by index and the
// shorter slice ends the stream.
func Lines(src, tgt []string) Source {
	n := len(src)
	if tgt != nil && len(tgt) < n {
		n = len(tgt)
	}
	lines := make([]filter.DatasetLine, n)
	for i := 0; i < n; i++ {
		if tgt == nil {
			lines[i] = filter.Mono(src[i])
		} else {
			lines[i] = filter.Pair(src[i], tgt[i])
		}
	}
	return &sliceSource{lines: lines}
}

// FromLines returns a Source over prepared lines.
func FromLines(lines []filter.DatasetLine) Source {
	return &sliceSource{lines: lines}
}

func (s *sliceSource) Next(ctx context.Context) (filter.DatasetLine, bool, error) {
	if s.pos >= len(s.lines) {
		return filter.DatasetLine{}, false, nil
	}
	line := s.lines[s.pos]
	s.pos++
	return line, true, nil
}

// Collector is a Sink that keeps survivors in memory.
type Collector struct {
	Lines []filter.DatasetLine
}

// Write implements Sink.
func (c *Collector) Write(line filter.DatasetLine) error {
	c.Lines = append(c.Lines, line)
	return nil
}

// Discard is a Sink that drops every line, for statistics-only runs.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(filter.DatasetLine) error { return nil }
