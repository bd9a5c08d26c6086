package source

import (
	"fmt"
	"time"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// rawTable is a header plus string cells, as read from any text format.
type rawTable struct {
	header []string
	rows   [][]string
}

// buildOptions controls how a rawTable becomes a table.Table.
type buildOptions struct {
	timeColumn string
	dropText   bool // keep only numeric, bool and temporal columns
	sanitize   bool // apply table.SanitizeName to value columns
}

func (r *rawTable) column(i int) []string {
	cells := make([]string, len(r.rows))
	for ri, row := range r.rows {
		if i < len(row) {
			cells[ri] = row[i]
		}
	}
	return cells
}

func (r *rawTable) toTable(name string, opts buildOptions) (*table.Table, error) {
	keyIdx := -1
	for i, h := range r.header {
		if h == opts.timeColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("%w: %s: time column %q not found", common.ErrSourceRead, name, opts.timeColumn)
	}

	t := table.New(opts.timeColumn)
	t.Dates = make([]time.Time, 0, len(r.rows))
	for ri, cell := range r.column(keyIdx) {
		ts, err := parseDate(cell)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: time column %q: %v", common.ErrSourceRead, name, ri+1, opts.timeColumn, err)
		}
		t.Dates = append(t.Dates, table.Day(ts))
	}

	for i, h := range r.header {
		if i == keyIdx {
			continue
		}
		cells := r.column(i)
		kind := inferKind(cells)
		if opts.dropText && kind == table.Text {
			continue
		}
		colName := h
		if opts.sanitize {
			colName = table.SanitizeName(h)
		}
		if colName == t.Key || t.Index(colName) >= 0 {
			return nil, fmt.Errorf("%w: %s: column %q collides with another column after sanitization", common.ErrSchemaMismatch, name, h)
		}
		t.Columns = append(t.Columns, buildColumn(colName, kind, cells))
	}

	return t, nil
}
