// Command bitext-filter filters parallel corpora and reports what was removed.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/gordicaleksa/Open-NLLB/internal/corpusio"
	"github.com/gordicaleksa/Open-NLLB/internal/logging"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/config"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/normalize"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/store"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/store/sqlite"
)

const version = "0.1.0"

var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for bitext-filter.
var CLI struct {
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error (default from config, else info)"`
	LogFormat string `name:"log-format" help:"Log format: text or json (default from config, else text)"`

	Filter    FilterCmd    `cmd:"" help:"Run the filter chain over every configured dataset"`
	Stats     StatsCmd     `cmd:"" help:"Show recorded runs and merged counts"`
	Normalize NormalizeCmd `cmd:"" help:"Print normalized text, one line per input line"`
	Discover  DiscoverCmd  `cmd:"" help:"List datasets found under a directory"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// FilterCmd runs a filtering job.
type FilterCmd struct {
	Config  string `name:"config" short:"c" required:"" type:"existingfile" help:"YAML config file"`
	Workers int    `name:"workers" short:"j" help:"Shards processed concurrently (overrides config)"`
	StatsDB string `name:"stats-db" type:"path" help:"SQLite database for run records (overrides config)"`
	OutDir  string `name:"out-dir" short:"o" type:"path" help:"Output directory (overrides config)"`
}

func (c *FilterCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	initLogging(cfg.Log)
	if c.OutDir != "" {
		cfg.Output.Dir = c.OutDir
	}
	if c.StatsDB != "" {
		cfg.StatsDB = c.StatsDB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.StatsDB != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.StatsDB)
		if err != nil {
			return fmt.Errorf("open stats db: %w", err)
		}
	}

	f, err := bitext.New(bitext.Options{Config: cfg, Store: st, Workers: c.Workers})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return err
	}
	defer f.Close()

	res, err := f.Run(ctx)
	if err != nil {
		return err
	}
	logging.Info("filtering finished", "shards", len(res.Runs), "kept", res.Totals.TotalAfter, "total", res.Totals.TotalBefore)
	return printCounts(res.Totals)
}

// StatsCmd reports recorded runs.
type StatsCmd struct {
	DB      string `name:"db" required:"" type:"existingfile" help:"SQLite run database"`
	Dataset string `name:"dataset" help:"Only runs of this dataset"`
	SrcLang string `name:"src-lang" help:"Only runs with this source language"`
	TgtLang string `name:"tgt-lang" help:"Only runs with this target language"`
	Limit   int    `name:"limit" help:"Maximum runs to consider (0 = all)"`
}

func (c *StatsCmd) Run() error {
	initLogging(config.LogSettings{})
	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	f := store.RunFilter{Dataset: c.Dataset, SrcLang: c.SrcLang, TgtLang: c.TgtLang, Limit: c.Limit}
	runs, err := st.ListRuns(ctx, f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATASET\tDIRECTION\tKEPT\tTOTAL\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%d\t%d\t%s\n",
			r.ID, r.Dataset, r.SrcLang, r.TgtLang, r.Counts.TotalAfter, r.Counts.TotalBefore, r.Duration())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totals, err := st.Totals(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	return printCounts(totals)
}

// NormalizeCmd prints normalized text for inspection.
type NormalizeCmd struct {
	Mode  string `name:"mode" short:"m" enum:"dedup,lid" default:"dedup" help:"Normalization: dedup or lid"`
	Input string `arg:"" optional:"" default:"-" help:"Input file (default: stdin)"`
}

func (c *NormalizeCmd) Run() error {
	initLogging(config.LogSettings{})
	r, err := corpusio.Open(c.Input)
	if err != nil {
		return err
	}
	defer r.Close()
	return normalizeLines(r, stdout, c.Mode)
}

func normalizeLines(r io.Reader, w io.Writer, mode string) error {
	norm := normalize.ForDedup
	if mode == "lid" {
		norm = normalize.ForLID
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	bw := bufio.NewWriter(w)
	for sc.Scan() {
		bw.WriteString(norm(sc.Text()))
		bw.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return bw.Flush()
}

// DiscoverCmd lists dataset pairs under a directory.
type DiscoverCmd struct {
	Root    string `arg:"" type:"existingdir" help:"Directory to search"`
	SrcLang string `name:"src-lang" required:"" help:"Source language code, e.g. eng_Latn"`
	TgtLang string `name:"tgt-lang" required:"" help:"Target language code"`
}

func (c *DiscoverCmd) Run() error {
	initLogging(config.LogSettings{})
	found, err := corpusio.Discover(c.Root, c.SrcLang, c.TgtLang)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, ds := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ds.Corpus, ds.Src, ds.Tgt)
	}
	return tw.Flush()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "bitext-filter version %s\n", version)
	return nil
}

// initLogging applies command-line log flags, falling back to the config's.
func initLogging(fromConfig config.LogSettings) {
	level, format := CLI.LogLevel, CLI.LogFormat
	if level == "" {
		level = fromConfig.Level
	}
	if format == "" {
		format = fromConfig.Format
	}
	logging.InitLogger(os.Stderr, logging.ParseLevel(level), logging.ParseFormat(format))
}

func printCounts(c counts.Counts) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bitext-filter"),
		kong.Description("Filter parallel corpora: dedup, length, language-id and score filters"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
