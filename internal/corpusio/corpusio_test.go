package corpusio

import (
	"bytes"
	"compress/gzip"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zeebo/blake3"
)

const sample = "Hello world.\nZdravo svete.\n"

func TestCreateOpenRoundTrip(t *testing.T) {
	for _, compression := range []string{None, Gzip, XZ} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "corpus.eng_Latn"+Ext(compression))

			w, err := Create(path, compression)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := io.WriteString(w, sample); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			sum := blake3.Sum256([]byte(sample))
			if got, want := w.Digest(), hex.EncodeToString(sum[:]); got != want {
				t.Errorf("digest = %s, want %s", got, want)
			}

			r, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != sample {
				t.Errorf("read back %q", data)
			}
		})
	}
}

func TestOpenDetectsGzipByMagic(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(sample))
	gw.Close()

	// No .gz suffix: detection must come from the header.
	path := filepath.Join(t.TempDir(), "corpus.eng_Latn")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != sample {
		t.Errorf("read back %q", data)
	}
}

func TestOpenShortPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.txt")
	if err := os.WriteFile(path, []byte("a\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "a\n" {
		t.Errorf("read back %q", data)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error")
	}
}

func TestCreateUnknownCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	if _, err := Create(path, "zstd"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed Create should not leave a file behind")
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"ccmatrix.eng_Latn.gz",
		"ccmatrix.srp_Cyrl.gz",
		"wikimatrix.eng_Latn",
		"wikimatrix.srp_Cyrl",
		"lonely.eng_Latn",
		"other.deu_Latn",
		"README",
		"seed/nllb.eng_Latn.xz",
		"seed/nllb.srp_Cyrl.xz",
		".cache/tmp.eng_Latn",
		".cache/tmp.srp_Cyrl",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover(root, "eng_Latn", "srp_Cyrl")
	if err != nil {
		t.Fatal(err)
	}
	want := []Dataset{
		{Corpus: "ccmatrix", Src: filepath.Join(root, "ccmatrix.eng_Latn.gz"), Tgt: filepath.Join(root, "ccmatrix.srp_Cyrl.gz")},
		{Corpus: "seed/nllb", Src: filepath.Join(root, "seed", "nllb.eng_Latn.xz"), Tgt: filepath.Join(root, "seed", "nllb.srp_Cyrl.xz")},
		{Corpus: "wikimatrix", Src: filepath.Join(root, "wikimatrix.eng_Latn"), Tgt: filepath.Join(root, "wikimatrix.srp_Cyrl")},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover = %+v\nwant %+v", got, want)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name, corpus, lang string
		ok                 bool
	}{
		{"ccmatrix.eng_Latn", "ccmatrix", "eng_Latn", true},
		{"a.b.fra_Latn.xz", "a.b", "fra_Latn", true},
		{"README", "", "", false},
		{".hidden", "", "", false},
		{"trailing.", "", "", false},
	}
	for _, tt := range tests {
		corpus, lang, ok := splitName(tt.name)
		if corpus != tt.corpus || lang != tt.lang || ok != tt.ok {
			t.Errorf("splitName(%q) = %q, %q, %v", tt.name, corpus, lang, ok)
		}
	}
}
