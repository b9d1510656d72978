package corpusio

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gordicaleksa/Open-NLLB/internal/logging"
)

// Dataset is a discovered source/target file pair.
type Dataset struct {
	Corpus string
	Src    string
	Tgt    string
}

// Discover walks root for files named <corpus>.<lang>, optionally with a .gz
// or .xz suffix, and pairs source and target files of the same corpus in the
// same directory. Corpora found in subdirectories are named by their relative
// path so output names never collide. Results are sorted by corpus.
func Discover(root, srcLang, tgtLang string) ([]Dataset, error) {
	type pair struct{ src, tgt string }
	found := make(map[string]*pair)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		corpus, lang, ok := splitName(d.Name())
		if !ok || (lang != srcLang && lang != tgtLang) {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		if rel != "." {
			corpus = filepath.ToSlash(filepath.Join(rel, corpus))
		}

		p := found[corpus]
		if p == nil {
			p = &pair{}
			found[corpus] = p
		}
		if lang == srcLang {
			p.src = path
		} else {
			p.tgt = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Dataset
	for corpus, p := range found {
		if p.src == "" || p.tgt == "" {
			logging.Debug("skipping unpaired corpus", "corpus", corpus, "src", p.src, "tgt", p.tgt)
			continue
		}
		out = append(out, Dataset{Corpus: corpus, Src: p.src, Tgt: p.tgt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Corpus < out[j].Corpus })
	return out, nil
}

// splitName splits "ccmatrix.eng_Latn.gz" into ("ccmatrix", "eng_Latn").
func splitName(name string) (corpus, lang string, ok bool) {
	for _, ext := range []string{".gz", ".xz"} {
		name = strings.TrimSuffix(name, ext)
	}
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
