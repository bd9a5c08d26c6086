package artifact

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// WriteCSV writes t as a delimited file: the key column first, then every
// value column; missing values are empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)

	header := append([]string{t.Key}, t.ColumnNames()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for row, d := range t.Dates {
		record[0] = d.Format(dateLayout)
		for ci := range t.Columns {
			record[ci+1] = formatCell(&t.Columns[ci], row)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes t to path atomically.
func SaveCSV(path string, t *table.Table) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, t)
	})
}

func formatCell(c *table.Column, row int) string {
	if c.IsMissing(row) {
		return ""
	}
	switch c.Kind {
	case table.Text:
		return c.Strings[row]
	case table.Temporal:
		return time.Unix(int64(c.Floats[row]), 0).UTC().Format(dateTimeLayout)
	default:
		return strconv.FormatFloat(c.Floats[row], 'g', -1, 64)
	}
}
