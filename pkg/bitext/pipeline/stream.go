package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/filter"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/internalerr"
)

// maxLineBytes caps a single sentence; longer lines are a read error.
const maxLineBytes = 16 << 20

// Streams are the inputs of one shard. Tgt and Scores are optional.
type Streams struct {
	Src    io.Reader
	Tgt    io.Reader
	Scores io.Reader
	Corpus string
}

// StreamSource reads one sentence per line from each stream and pairs them
// by line number. Streams are assumed aligned: the first stream to end ends
// the source, and no length mismatch is reported.
type StreamSource struct {
	src, tgt, scores *bufio.Scanner
	corpus           string
	lineNo           int
}

// NewStreamSource wraps the given streams.
func NewStreamSource(s Streams) *StreamSource {
	ss := &StreamSource{src: newScanner(s.Src), corpus: s.Corpus}
	if s.Tgt != nil {
		ss.tgt = newScanner(s.Tgt)
	}
	if s.Scores != nil {
		ss.scores = newScanner(s.Scores)
	}
	return ss
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

// Next implements Source. Invalid UTF-8 is fatal for the shard.
func (s *StreamSource) Next(ctx context.Context) (filter.DatasetLine, bool, error) {
	src, ok, err := s.scan(s.src, "source")
	if err != nil || !ok {
		return filter.DatasetLine{}, false, err
	}
	s.lineNo++
	line := filter.DatasetLine{Src: src, Corpus: s.corpus}

	if s.tgt != nil {
		tgt, ok, err := s.scan(s.tgt, "target")
		if err != nil || !ok {
			return filter.DatasetLine{}, false, err
		}
		line.Tgt = &tgt
	}

	if s.scores != nil {
		raw, ok, err := s.scan(s.scores, "scores")
		if err != nil || !ok {
			return filter.DatasetLine{}, false, err
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return filter.DatasetLine{}, false, fmt.Errorf("%w: scores line %d: %v", internalerr.ErrMalformedInput, s.lineNo, err)
		}
		line.Score = &score
	}

	return line, true, nil
}

func (s *StreamSource) scan(sc *bufio.Scanner, side string) (string, bool, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", false, fmt.Errorf("%s stream: %w", side, err)
		}
		return "", false, nil
	}
	text := strings.TrimSuffix(sc.Text(), "\r")
	if !utf8.ValidString(text) {
		return "", false, fmt.Errorf("%w: %s line %d is not valid UTF-8", internalerr.ErrMalformedInput, side, s.lineNo+1)
	}
	return text, true, nil
}

// StreamSink writes survivors back out as aligned text streams.
type StreamSink struct {
	src, tgt *bufio.Writer
}

// NewStreamSink writes sources to src and targets to tgt. tgt may be nil for
// monolingual output.
func NewStreamSink(src, tgt io.Writer) *StreamSink {
	s := &StreamSink{src: bufio.NewWriter(src)}
	if tgt != nil {
		s.tgt = bufio.NewWriter(tgt)
	}
	return s
}

// Write implements Sink.
func (s *StreamSink) Write(line filter.DatasetLine) error {
	if err := writeLine(s.src, line.Src); err != nil {
		return err
	}
	if s.tgt != nil {
		return writeLine(s.tgt, line.TgtText())
	}
	return nil
}

// Flush flushes buffered output.
func (s *StreamSink) Flush() error {
	if err := s.src.Flush(); err != nil {
		return err
	}
	if s.tgt != nil {
		return s.tgt.Flush()
	}
	return nil
}

func writeLine(w *bufio.Writer, text string) error {
	if _, err := w.WriteString(text); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
