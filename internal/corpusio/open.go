// Package corpusio opens and creates corpus files, transparently handling
// gzip and xz compression.
package corpusio

import (
	"bytes"
	"compress/gzip"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

// Compression names accepted by Create.
const (
	None = "none"
	Gzip = "gzip"
	XZ   = "xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens path for reading. "-" is stdin. Compression is detected by
// magic number or by a .gz/.xz suffix.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var sig [6]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}

	switch {
	case bytes.HasPrefix(sig[:n], xzMagic) || strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &multiReadCloser{Reader: xr, closers: []io.Closer{fh}}, nil
	case bytes.HasPrefix(sig[:n], gzipMagic) || strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// Ext returns the file suffix for a compression name.
func Ext(compression string) string {
	switch compression {
	case Gzip:
		return ".gz"
	case XZ:
		return ".xz"
	}
	return ""
}

// Writer writes a corpus file and tracks the BLAKE3 digest of the
// uncompressed content.
type Writer struct {
	path    string
	w       io.Writer
	hasher  hash.Hash
	closers []io.Closer
	digest  string
}

// Create creates path (and its parent directory) with the given compression.
func Create(path, compression string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{path: path, hasher: blake3.New()}
	switch compression {
	case "", None:
		w.w = fh
		w.closers = []io.Closer{fh}
	case Gzip:
		gw := gzip.NewWriter(fh)
		w.w = gw
		w.closers = []io.Closer{gw, fh}
	case XZ:
		xw, err := xz.NewWriter(fh)
		if err != nil {
			_ = fh.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		w.w = xw
		w.closers = []io.Closer{xw, fh}
	default:
		_ = fh.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
	return w, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.hasher.Write(p[:n])
	return n, err
}

// Close flushes compression and closes the file. The digest is final after Close.
func (w *Writer) Close() error {
	var err error
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	w.digest = hex.EncodeToString(w.hasher.Sum(nil))
	if err != nil {
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	return nil
}

// Digest returns the hex BLAKE3 digest of the bytes written. Empty before Close.
func (w *Writer) Digest() string {
	return w.digest
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}
