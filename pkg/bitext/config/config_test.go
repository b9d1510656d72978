package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/filter"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "length_factors.yaml", `eng_Latn: 1.0
zho_Hans: 3.5
srp_Cyrl: 1.1
`)
	path := writeFile(t, tmpDir, "filter.yaml", `src_lang: eng_Latn
tgt_lang: srp_Cyrl
length_factors_path: length_factors.yaml
length_factors:
  srp_Cyrl: 1.2
length:
  min_len: 5
  max_len: 1050
  max_len_ratio: 9
dedup:
  dedup_pairs: true
  max_target_dedup: 3
datasets:
  - corpus: ccmatrix
    src: data/ccmatrix.eng_Latn
    tgt: data/ccmatrix.srp_Cyrl
output:
  dir: out
  compression: xz
workers: 4
stats_db: runs.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SrcLang != "eng_Latn" || cfg.TgtLang != "srp_Cyrl" {
		t.Errorf("langs = %s/%s", cfg.SrcLang, cfg.TgtLang)
	}
	if *cfg.Length.MinLen != 5 || *cfg.Length.MaxLen != 1050 || *cfg.Length.MaxLenRatio != 9 {
		t.Errorf("unexpected length bounds: %+v", cfg.Length)
	}
	if cfg.Length.MinSrcUniqueRatio != nil {
		t.Error("unset bound should stay nil")
	}
	if !cfg.Dedup.DedupPairs || cfg.Dedup.MaxTargetDedup != 3 || cfg.Dedup.MaxSourceDedup != 0 {
		t.Errorf("unexpected dedup: %+v", cfg.Dedup)
	}
	if cfg.Dedup.Scope != ScopeShard {
		t.Errorf("default scope = %q, want shard", cfg.Dedup.Scope)
	}

	// Inline factors override the file.
	if cfg.LengthFactors["srp_Cyrl"] != 1.2 || cfg.LengthFactors["zho_Hans"] != 3.5 {
		t.Errorf("unexpected factors: %v", cfg.LengthFactors)
	}

	if got, want := cfg.Datasets[0].Src, filepath.Join(tmpDir, "data", "ccmatrix.eng_Latn"); got != want {
		t.Errorf("dataset src = %q, want %q", got, want)
	}
	if cfg.Output.Dir != filepath.Join(tmpDir, "out") || cfg.StatsDB != filepath.Join(tmpDir, "runs.db") {
		t.Errorf("paths not resolved: %q %q", cfg.Output.Dir, cfg.StatsDB)
	}
	if cfg.Workers != 4 || cfg.Output.Compression != "xz" {
		t.Errorf("unexpected output/workers: %+v %d", cfg.Output, cfg.Workers)
	}
	if !reflect.DeepEqual(cfg.Filters, DefaultFilters) {
		t.Errorf("default filters = %v", cfg.Filters)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMissingFactorsFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "filter.yaml", "length_factors_path: nope.yaml\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "length factors") {
		t.Errorf("expected length factors error, got %v", err)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("src_lang: eng_Latn\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 1 || cfg.Output.Compression != "none" || cfg.LID.Mode != LIDModeScript {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown filter", "filters: [length, toxicity]", "unknown filter"},
		{"duplicate filter", "filters: [dedup, dedup]", "listed twice"},
		{"length needs lang", "length: {min_len: 3}", "src_lang is required"},
		{"min above max", "src_lang: a\nlength: {min_len: 10, max_len: 5}", "exceeds max_len"},
		{"ratio below one", "src_lang: a\nlength: {max_len_ratio: 0.5}", "max_len_ratio"},
		{"bad factor", "length_factors: {eng_Latn: 0}", "must be positive"},
		{"bad scope", "dedup: {scope: cluster}", "dedup scope"},
		{"negative dedup", "dedup: {max_source_dedup: -1}", "must not be negative"},
		{"bad lid mode", "lid: {mode: fasttext}", "unsupported lid mode"},
		{"lid threshold range", "src_lang: a\nlid: {threshold: 2}", "within [0, 1]"},
		{"bad compression", "output: {compression: zstd}", "compression"},
		{"dataset without src", "datasets: [{corpus: x}]", "src is required"},
		{"discover without tgt", "discover: {root: /data}", "tgt_lang is required"},
		{"duplicate corpus", "datasets: [{corpus: c, src: a}, {corpus: c, src: b}]", "already used by dataset 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestBuildChainOrder(t *testing.T) {
	cfg, err := Parse([]byte(`src_lang: eng_Latn
tgt_lang: srp_Cyrl
filters: [dedup, length, lid, score]
length_factors: {eng_Latn: 1, srp_Cyrl: 1}
length: {min_len: 2}
lid: {threshold: 0.5}
laser_threshold: 1.05
dedup: {dedup_pairs: true}
`))
	if err != nil {
		t.Fatal(err)
	}
	comp, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	chain := comp.NewChain()
	if got := chain.Names(); !reflect.DeepEqual(got, []string{"dedup", "length", "lid", "score"}) {
		t.Errorf("chain order = %v", got)
	}
}

func TestBuildSkipsDisabledFilters(t *testing.T) {
	cfg, err := Parse([]byte("src_lang: eng_Latn\n"))
	if err != nil {
		t.Fatal(err)
	}
	comp, err := Build(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := comp.NewChain().Names(); !reflect.DeepEqual(got, []string{"length"}) {
		t.Errorf("only the length filter should remain, got %v", got)
	}
}

func TestBuildDedupScope(t *testing.T) {
	for _, tc := range []struct {
		scope      string
		wantShared bool
	}{
		{ScopeShard, false},
		{ScopeGlobal, true},
	} {
		cfg, err := Parse([]byte("dedup: {dedup_pairs: true, scope: " + tc.scope + "}\n"))
		if err != nil {
			t.Fatal(err)
		}
		comp, err := Build(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}

		a, b := comp.NewChain(), comp.NewChain()
		var ca, cb counts.Counts
		a.FilterLine(filter.Pair("same", "pair"), &ca)
		b.FilterLine(filter.Pair("same", "pair"), &cb)

		shared := cb.PairDedup == 1
		if shared != tc.wantShared {
			t.Errorf("scope %s: second chain saw first chain's pair = %v, want %v", tc.scope, shared, tc.wantShared)
		}
	}
}

func TestBuildUnknownScript(t *testing.T) {
	cfg, err := Parse([]byte("src_lang: eng_Qaaa\nlid: {threshold: 0.5}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(cfg, nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuildExternalNeedsIdentifier(t *testing.T) {
	cfg, err := Parse([]byte("src_lang: eng_Latn\nlid: {mode: external, threshold: 0.5}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(cfg, nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := Build(cfg, filter.ScriptIdentifier{}); err != nil {
		t.Errorf("external identifier should be accepted: %v", err)
	}
}

func TestLoadLengthFactors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "factors.yaml", "eng_Latn: 1\njpn_Jpan: 2.5\n")
	factors, err := LoadLengthFactors(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(factors) != 2 || factors["jpn_Jpan"] != 2.5 {
		t.Errorf("unexpected factors: %v", factors)
	}
}

func TestCheckCorpora(t *testing.T) {
	unique := []Dataset{{Corpus: "a"}, {Corpus: "seed/a"}}
	if err := CheckCorpora(unique); err != nil {
		t.Errorf("unique corpora rejected: %v", err)
	}
	dup := []Dataset{{Corpus: "a"}, {Corpus: "b"}, {Corpus: "a"}}
	if err := CheckCorpora(dup); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
