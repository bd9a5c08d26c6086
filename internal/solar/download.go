package solar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/artifact"
)

// Download fetches f into solarDir/f.RelPath, replacing any previous copy
// only once the whole body has arrived. It returns the bytes written.
func Download(ctx context.Context, client *http.Client, f Feed, solarDir string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var n int64
	destPath := filepath.Join(solarDir, f.RelPath)
	err = artifact.WriteAtomic(destPath, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		var err error
		if f.Convert != nil {
			err = f.Convert(resp.Body, cw)
		} else {
			_, err = io.Copy(cw, resp.Body)
		}
		n = cw.n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	return n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
