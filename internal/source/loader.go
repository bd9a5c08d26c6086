// Package source loads one raw dataset (a satellite CSV directory or a solar
// feed file) into a normalized, time-indexed table.Table.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// Format identifies how a source is read.
type Format int

const (
	FormatAuto       Format = iota // decided from the path by DetectFormat
	FormatCSVDir                   // directory of CSV files, filtered and aggregated by date
	FormatJSON                     // JSON array of objects
	FormatCSV                      // single comma-separated file
	FormatWhitespace               // single whitespace-aligned text table
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatCSVDir:
		return "csv-dir"
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatWhitespace:
		return "whitespace"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Spec names one dataset and the column holding its dates.
type Spec struct {
	Name       string
	Path       string
	Format     Format
	TimeColumn string
}

// DetectFormat determines the format based on the path: directories are
// CSV directories, otherwise the extension (ignoring .gz/.zst) decides.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatAuto, fmt.Errorf("%w: %v", common.ErrSourceRead, err)
	}
	if info.IsDir() {
		return FormatCSVDir, nil
	}
	switch baseExt(path) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".txt", ".dat":
		return FormatWhitespace, nil
	}
	return FormatAuto, fmt.Errorf("%w: cannot detect format of %s", common.ErrSourceRead, path)
}

// Loader reads Specs into tables.
type Loader struct {
	log   *zap.Logger
	stats *common.Stats
}

// NewLoader creates a Loader. Both arguments may be nil.
func NewLoader(log *zap.Logger, stats *common.Stats) *Loader {
	return &Loader{log: common.OrNop(log), stats: stats}
}

// Load reads the dataset described by spec.
//
// A CSV directory is concatenated (all files must share one column set),
// restricted to numeric, bool and temporal columns, sanitized and
// aggregated to one row per date. Single-file feeds keep every column and
// every row; only their date column is parsed.
func (l *Loader) Load(ctx context.Context, spec Spec) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.TimeColumn == "" {
		return nil, fmt.Errorf("%w: %s: no time column configured", common.ErrSourceRead, spec.Name)
	}

	format := spec.Format
	if format == FormatAuto {
		var err error
		if format, err = DetectFormat(spec.Path); err != nil {
			return nil, err
		}
	}

	if format == FormatCSVDir {
		return l.loadCSVDir(ctx, spec)
	}

	raw, err := l.readFile(spec.Path, format)
	if err != nil {
		return nil, err
	}
	t, err := raw.toTable(spec.Name, buildOptions{timeColumn: spec.TimeColumn})
	if err != nil {
		return nil, err
	}

	l.log.Info("loaded source",
		zap.String("source", spec.Name),
		zap.String("format", format.String()),
		zap.Int("rows", t.Rows()),
		zap.Int("columns", len(t.Columns)),
	)
	return t, nil
}

func (l *Loader) loadCSVDir(ctx context.Context, spec Spec) (*table.Table, error) {
	files, err := listCSVFiles(spec.Path)
	if err != nil {
		return nil, err
	}

	parts := make([]*rawTable, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := l.readFile(f, FormatCSV)
		if err != nil {
			return nil, err
		}
		l.log.Debug("read file", zap.String("file", filepath.Base(f)), zap.Int("rows", len(raw.rows)))
		parts = append(parts, raw)
	}

	raw, err := concatCSV(spec.Name, files, parts)
	if err != nil {
		return nil, err
	}

	t, err := raw.toTable(spec.Name, buildOptions{
		timeColumn: spec.TimeColumn,
		dropText:   true,
		sanitize:   true,
	})
	if err != nil {
		return nil, err
	}
	agg := table.Aggregate(t)

	l.log.Info("loaded source",
		zap.String("source", spec.Name),
		zap.String("format", FormatCSVDir.String()),
		zap.Int("files", len(files)),
		zap.Int("raw_rows", t.Rows()),
		zap.Int("rows", agg.Rows()),
		zap.Int("columns", len(agg.Columns)),
	)
	return agg, nil
}

func (l *Loader) readFile(path string, format Format) (*rawTable, error) {
	rc, err := openInput(path, l.stats)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	name := filepath.Base(path)
	var raw *rawTable
	switch format {
	case FormatJSON:
		raw, err = readJSON(rc, name)
	case FormatCSV:
		raw, err = readCSV(rc, name)
	case FormatWhitespace:
		raw, err = readWhitespace(rc, name)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported format %s", common.ErrSourceRead, name, format)
	}
	if err != nil {
		return nil, err
	}
	l.stats.AddRows(uint64(len(raw.rows)))
	return raw, nil
}

// Normalize loads path with a default Loader, detecting the format.
func Normalize(ctx context.Context, path, timeColumn string) (*table.Table, error) {
	return NewLoader(nil, nil).Load(ctx, Spec{
		Name:       filepath.Base(path),
		Path:       path,
		TimeColumn: timeColumn,
	})
}
