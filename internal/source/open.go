package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// openInput opens path, transparently decompressing .gz (parallel gzip) and
// .zst files. Bytes handed to the caller are counted in stats.
func openInput(path string, stats *common.Stats) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceRead, err)
	}
	stats.AddFile()

	var rc io.ReadCloser = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: gzip %s: %v", common.ErrSourceRead, path, err)
		}
		rc = &stackedCloser{Reader: gz, closers: []io.Closer{gz, f}}
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: zstd %s: %v", common.ErrSourceRead, path, err)
		}
		rc = &stackedCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), f}}
	}

	return &countingReader{ReadCloser: rc, stats: stats}, nil
}

// baseExt returns the extension with any compression suffix removed
// ("a.csv.gz" -> ".csv").
func baseExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".gz" || ext == ".zst" {
		return strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	return ext
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type countingReader struct {
	io.ReadCloser
	stats *common.Stats
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.stats.AddBytes(uint64(n))
	return n, err
}
