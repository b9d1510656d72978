// Package bitext filters parallel corpora: it runs every configured dataset
// through a filter chain, writes the survivors and records per-shard counts.
package bitext

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gordicaleksa/Open-NLLB/internal/corpusio"
	"github.com/gordicaleksa/Open-NLLB/internal/logging"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/config"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/filter"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/pipeline"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/store"
)

// Options configures a Filterer
type Options struct {
	Config *config.Config
	// Identifier scores LID text. Nil uses the built-in script identifier.
	Identifier filter.LanguageIdentifier
	// Store records one run per shard. Optional.
	Store store.Store
	// Workers overrides Config.Workers when positive.
	Workers int
}

// Filterer runs datasets through the configured filters.
type Filterer struct {
	cfg     *config.Config
	comp    *config.Components
	store   store.Store
	ids     *store.IDs
	workers int
}

// Result is the outcome of a job.
type Result struct {
	Runs   []store.Run // in dataset order
	Totals counts.Counts
}

// New builds the filter components for opts.Config.
func New(opts Options) (*Filterer, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bitext: config is required")
	}
	comp, err := config.Build(opts.Config, opts.Identifier)
	if err != nil {
		return nil, err
	}

	workers := opts.Config.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	if workers < 1 {
		workers = 1
	}
	if opts.Config.Dedup.Scope == config.ScopeGlobal && workers > 1 {
		logging.Warn("global dedup with several workers: which copy of a duplicate survives, and the source/target dedup split, can differ between runs",
			"workers", workers)
	}

	return &Filterer{
		cfg:     opts.Config,
		comp:    comp,
		store:   opts.Store,
		ids:     store.NewIDs(),
		workers: workers,
	}, nil
}

// Close closes the run store, if any.
func (f *Filterer) Close() error {
	if f.store == nil {
		return nil
	}
	return f.store.Close()
}

// Datasets returns the configured datasets followed by discovered ones. A
// discovered corpus that repeats a configured name is a config error.
func (f *Filterer) Datasets() ([]config.Dataset, error) {
	datasets := append([]config.Dataset(nil), f.cfg.Datasets...)
	if f.cfg.Discover != nil {
		found, err := corpusio.Discover(f.cfg.Discover.Root, f.cfg.SrcLang, f.cfg.TgtLang)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", f.cfg.Discover.Root, err)
		}
		for _, ds := range found {
			datasets = append(datasets, config.Dataset{Corpus: ds.Corpus, Src: ds.Src, Tgt: ds.Tgt})
		}
	}
	if err := config.CheckCorpora(datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// Run filters every dataset, up to Workers at a time. The first shard error
// cancels the remaining shards and is returned.
func (f *Filterer) Run(ctx context.Context) (Result, error) {
	datasets, err := f.Datasets()
	if err != nil {
		return Result{}, err
	}
	if len(datasets) == 0 {
		return Result{}, fmt.Errorf("bitext: no datasets configured or discovered")
	}

	runs := make([]store.Run, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, ds := range datasets {
		g.Go(func() error {
			run, err := f.RunDataset(gctx, ds)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", ds.Corpus, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	all := make([]counts.Counts, len(runs))
	for i, r := range runs {
		all[i] = r.Counts
	}
	return Result{Runs: runs, Totals: counts.Sum(all...)}, nil
}

// RunDataset filters a single shard with a fresh chain.
func (f *Filterer) RunDataset(ctx context.Context, ds config.Dataset) (store.Run, error) {
	run := store.Run{
		ID:        f.ids.New(),
		Dataset:   ds.Corpus,
		SrcLang:   f.cfg.SrcLang,
		TgtLang:   f.cfg.TgtLang,
		StartedAt: time.Now().UTC(),
	}
	logging.ShardEvent("start", ds.Corpus, "run_id", run.ID)

	c, out, err := f.process(ctx, ds)
	if err != nil {
		logging.ShardEvent("failed", ds.Corpus, "run_id", run.ID, "error", err)
		return store.Run{}, err
	}

	run.Counts = c
	run.FinishedAt = time.Now().UTC()
	if out != nil {
		run.SrcDigest = out.src.Digest()
		if out.tgt != nil {
			run.TgtDigest = out.tgt.Digest()
		}
	}

	if f.store != nil {
		if err := f.store.PutRun(ctx, run); err != nil {
			return store.Run{}, fmt.Errorf("record run: %w", err)
		}
	}

	logging.ShardEvent("done", ds.Corpus,
		"run_id", run.ID,
		"total_before", c.TotalBefore,
		"total_after", c.TotalAfter,
		"duration", run.Duration().String(),
	)
	return run, nil
}

// outputs are the written streams of one shard.
type outputs struct {
	src, tgt *corpusio.Writer
}

func (o *outputs) close() error {
	err := o.src.Close()
	if o.tgt != nil {
		if terr := o.tgt.Close(); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}

// discard closes the writers and removes their files.
func (o *outputs) discard() {
	o.close()
	o.remove()
}

func (o *outputs) remove() {
	os.Remove(o.src.Path())
	if o.tgt != nil {
		os.Remove(o.tgt.Path())
	}
}

func (f *Filterer) process(ctx context.Context, ds config.Dataset) (counts.Counts, *outputs, error) {
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	open := func(path string) (io.Reader, error) {
		if path == "" {
			return nil, nil
		}
		r, err := corpusio.Open(path)
		if err != nil {
			return nil, err
		}
		closers = append(closers, r)
		return r, nil
	}

	streams := pipeline.Streams{Corpus: ds.Corpus}
	var err error
	if streams.Src, err = open(ds.Src); err != nil {
		return counts.Counts{}, nil, err
	}
	if streams.Tgt, err = open(ds.Tgt); err != nil {
		return counts.Counts{}, nil, err
	}
	if streams.Scores, err = open(ds.Scores); err != nil {
		return counts.Counts{}, nil, err
	}

	var (
		sink pipeline.Sink = pipeline.Discard
		out  *outputs
		ss   *pipeline.StreamSink
	)
	if f.cfg.Output.Dir != "" {
		out, err = f.createOutputs(ds)
		if err != nil {
			return counts.Counts{}, nil, err
		}
		// A nil *Writer must not reach NewStreamSink as a non-nil io.Writer.
		if out.tgt != nil {
			ss = pipeline.NewStreamSink(out.src, out.tgt)
		} else {
			ss = pipeline.NewStreamSink(out.src, nil)
		}
		sink = ss
	}

	c, err := pipeline.Run(ctx, pipeline.NewStreamSource(streams), f.comp.NewChain(), sink)
	if err != nil {
		if out != nil {
			out.discard()
		}
		return c, nil, err
	}

	if out != nil {
		if err := ss.Flush(); err != nil {
			out.discard()
			return c, nil, fmt.Errorf("flush output: %w", err)
		}
		if err := out.close(); err != nil {
			out.remove()
			return c, nil, err
		}
	}
	return c, out, nil
}

func (f *Filterer) createOutputs(ds config.Dataset) (*outputs, error) {
	ext := corpusio.Ext(f.cfg.Output.Compression)
	name := func(lang, fallback string) string {
		if lang == "" {
			lang = fallback
		}
		return filepath.Join(f.cfg.Output.Dir, filepath.FromSlash(ds.Corpus)+"."+lang+ext)
	}

	out := &outputs{}
	var err error
	if out.src, err = corpusio.Create(name(f.cfg.SrcLang, "src"), f.cfg.Output.Compression); err != nil {
		return nil, err
	}
	if ds.Tgt != "" {
		if out.tgt, err = corpusio.Create(name(f.cfg.TgtLang, "tgt"), f.cfg.Output.Compression); err != nil {
			out.src.Close()
			os.Remove(out.src.Path())
			return nil, err
		}
	}
	return out, nil
}

// Run is a convenience wrapper: build a Filterer from opts and run it once.
// The store, if any, is left open.
func Run(ctx context.Context, opts Options) (Result, error) {
	f, err := New(opts)
	if err != nil {
		return Result{}, err
	}
	return f.Run(ctx)
}
