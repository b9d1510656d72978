package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/filter"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/internalerr"
)

// Filter names accepted in Config.Filters.
const (
	FilterLength = "length"
	FilterLID    = "lid"
	FilterScore  = "score"
	FilterDedup  = "dedup"
)

// DefaultFilters is the order used when Config.Filters is empty. Dedup runs
// last so that lines rejected for other reasons never enter its hash state.
var DefaultFilters = []string{FilterLength, FilterScore, FilterLID, FilterDedup}

// LID modes. External means the embedding program supplies the identifier.
const (
	LIDModeScript   = "script"
	LIDModeExternal = "external"
)

// Dedup scopes.
const (
	ScopeShard  = "shard"
	ScopeGlobal = "global"
)

// Config is the top-level filtering configuration.
type Config struct {
	SrcLang string `yaml:"src_lang"`
	TgtLang string `yaml:"tgt_lang"`

	// LengthFactorsPath points to a YAML map of language code to factor.
	// Inline LengthFactors entries override entries from the file.
	LengthFactorsPath string             `yaml:"length_factors_path"`
	LengthFactors     map[string]float64 `yaml:"length_factors"`

	Filters        []string    `yaml:"filters"`
	Length         Length      `yaml:"length"`
	Dedup          Dedup       `yaml:"dedup"`
	LID            LID         `yaml:"lid"`
	LaserThreshold *float64    `yaml:"laser_threshold"`
	Datasets       []Dataset   `yaml:"datasets"`
	Discover       *Discover   `yaml:"discover"`
	Output         Output      `yaml:"output"`
	Workers        int         `yaml:"workers"`
	StatsDB        string      `yaml:"stats_db"`
	Log            LogSettings `yaml:"log"`
}

// Length holds length filter bounds.
type Length struct {
	MinLen            *int     `yaml:"min_len"`
	MaxLen            *int     `yaml:"max_len"`
	MaxLenRatio       *float64 `yaml:"max_len_ratio"`
	MinSrcUniqueRatio *float64 `yaml:"min_src_unique_ratio"`
}

// Enabled reports whether any bound is set.
func (l Length) Enabled() bool {
	return l.MinLen != nil || l.MaxLen != nil || l.MaxLenRatio != nil || l.MinSrcUniqueRatio != nil
}

// Dedup holds dedup settings and the state scope.
type Dedup struct {
	filter.DedupConfig `yaml:",inline"`
	Scope              string `yaml:"scope"`
}

// LID holds language-identification thresholds.
type LID struct {
	Mode         string  `yaml:"mode"`
	Threshold    float64 `yaml:"threshold"`
	SrcThreshold float64 `yaml:"src_threshold"`
	TgtThreshold float64 `yaml:"tgt_threshold"`
}

// Enabled reports whether any side has a threshold.
func (l LID) Enabled() bool {
	return l.Threshold > 0 || l.SrcThreshold > 0 || l.TgtThreshold > 0
}

// Dataset is one shard: aligned source/target files and optional scores.
// Corpus names the shard's output files and run records.
type Dataset struct {
	Corpus string `yaml:"corpus"`
	Src    string `yaml:"src"`
	Tgt    string `yaml:"tgt"`
	Scores string `yaml:"scores"`
}

// Discover finds datasets under Root instead of listing them.
type Discover struct {
	Root string `yaml:"root"`
}

// Output controls where survivors are written. An empty Dir runs statistics only.
type Output struct {
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"`
}

// LogSettings selects log level and format.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file, resolves relative paths against the file's
// directory, loads length factors and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.loadFactors(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not touch the filesystem.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadLengthFactors loads a YAML map of language code to length factor.
func LoadLengthFactors(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	factors := make(map[string]float64)
	if err := yaml.Unmarshal(data, &factors); err != nil {
		return nil, err
	}
	return factors, nil
}

func (c *Config) applyDefaults() {
	if len(c.Filters) == 0 {
		c.Filters = append([]string(nil), DefaultFilters...)
	}
	if c.Dedup.Scope == "" {
		c.Dedup.Scope = ScopeShard
	}
	if c.LID.Mode == "" {
		c.LID.Mode = LIDModeScript
	}
	if c.Output.Compression == "" {
		c.Output.Compression = "none"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || p == "-" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	c.LengthFactorsPath = resolve(c.LengthFactorsPath)
	c.StatsDB = resolve(c.StatsDB)
	c.Output.Dir = resolve(c.Output.Dir)
	if c.Discover != nil {
		c.Discover.Root = resolve(c.Discover.Root)
	}
	for i := range c.Datasets {
		c.Datasets[i].Src = resolve(c.Datasets[i].Src)
		c.Datasets[i].Tgt = resolve(c.Datasets[i].Tgt)
		c.Datasets[i].Scores = resolve(c.Datasets[i].Scores)
	}
}

func (c *Config) loadFactors() error {
	if c.LengthFactorsPath == "" {
		return nil
	}
	fromFile, err := LoadLengthFactors(c.LengthFactorsPath)
	if err != nil {
		return fmt.Errorf("load length factors: %w", err)
	}
	for lang, v := range c.LengthFactors {
		fromFile[lang] = v
	}
	c.LengthFactors = fromFile
	return nil
}

// Validate checks the configuration for contradictions. Corpus names must be
// unique because they name the output files.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	seen := make(map[string]bool)
	for _, name := range c.Filters {
		switch name {
		case FilterLength, FilterLID, FilterScore, FilterDedup:
		default:
			add("unknown filter %q", name)
		}
		if seen[name] {
			add("filter %q listed twice", name)
		}
		seen[name] = true
	}

	if c.SrcLang == "" && (c.Length.Enabled() || c.LID.Enabled()) {
		add("src_lang is required when length or lid filtering is enabled")
	}
	if c.Length.MinLen != nil && c.Length.MaxLen != nil && *c.Length.MinLen > *c.Length.MaxLen {
		add("min_len %d exceeds max_len %d", *c.Length.MinLen, *c.Length.MaxLen)
	}
	if c.Length.MaxLenRatio != nil && *c.Length.MaxLenRatio < 1 {
		add("max_len_ratio must be >= 1")
	}
	for lang, v := range c.LengthFactors {
		if v <= 0 {
			add("length factor for %s must be positive", lang)
		}
	}

	if c.Dedup.MaxSourceDedup < 0 || c.Dedup.MaxTargetDedup < 0 {
		add("dedup maxima must not be negative")
	}
	if c.Dedup.Scope != ScopeShard && c.Dedup.Scope != ScopeGlobal {
		add("dedup scope must be %q or %q", ScopeShard, ScopeGlobal)
	}

	if c.LID.Mode != LIDModeScript && c.LID.Mode != LIDModeExternal {
		add("unsupported lid mode %q", c.LID.Mode)
	}
	for _, th := range []float64{c.LID.Threshold, c.LID.SrcThreshold, c.LID.TgtThreshold} {
		if th < 0 || th > 1 {
			add("lid thresholds must be within [0, 1]")
			break
		}
	}

	switch c.Output.Compression {
	case "none", "gzip", "xz":
	default:
		add("unknown output compression %q", c.Output.Compression)
	}

	corpora := make(map[string]int)
	for i, ds := range c.Datasets {
		if ds.Src == "" {
			add("dataset %d: src is required", i)
		}
		if ds.Corpus == "" {
			add("dataset %d: corpus is required", i)
			continue
		}
		if first, dup := corpora[ds.Corpus]; dup {
			add("dataset %d: corpus %q already used by dataset %d", i, ds.Corpus, first)
			continue
		}
		corpora[ds.Corpus] = i
	}
	if c.Discover != nil && c.Discover.Root == "" {
		add("discover.root is required")
	}
	if c.Discover != nil && c.TgtLang == "" {
		add("tgt_lang is required for discovery")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CheckCorpora reports the first corpus name shared by two datasets.
func CheckCorpora(datasets []Dataset) error {
	seen := make(map[string]bool, len(datasets))
	for _, ds := range datasets {
		if seen[ds.Corpus] {
			return fmt.Errorf("%w: corpus %q appears in more than one dataset", internalerr.ErrInvalidConfig, ds.Corpus)
		}
		seen[ds.Corpus] = true
	}
	return nil
}
