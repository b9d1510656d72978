package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
)

// Store persists per-shard run records.
type Store interface {
	Close() error

	PutRun(ctx context.Context, r Run) error
	// GetRun returns internalerr.ErrNotFound for an unknown id.
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, f RunFilter) ([]Run, error)
	// Totals merges the counts of every run matching f.
	Totals(ctx context.Context, f RunFilter) (counts.Counts, error)
}

// Run records one shard pass through the filter chain.
type Run struct {
	ID         string
	Dataset    string
	SrcLang    string
	TgtLang    string
	Counts     counts.Counts
	SrcDigest  string // BLAKE3 of written source stream, empty when not written
	TgtDigest  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunFilter selects runs. Empty fields match everything; Limit <= 0 means no limit.
type RunFilter struct {
	Dataset string
	SrcLang string
	TgtLang string
	Limit   int
}

// Match reports whether r passes the filter, ignoring Limit.
func (f RunFilter) Match(r Run) bool {
	return (f.Dataset == "" || f.Dataset == r.Dataset) &&
		(f.SrcLang == "" || f.SrcLang == r.SrcLang) &&
		(f.TgtLang == "" || f.TgtLang == r.TgtLang)
}

// IDs generates run ids that sort by creation time. Safe for concurrent use.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs creates a run id generator.
func NewIDs() *IDs {
	return &IDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh ULID string.
func (g *IDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}
