package artifact

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// parquetRowGroup bounds how many rows are buffered per WriteRows call.
const parquetRowGroup = 10_000

// ParquetSchema builds the schema of t: a required DATE key column and one
// optional leaf per value column (DOUBLE, or STRING for text). Temporal
// columns are stored as DOUBLE Unix seconds, as in memory.
func ParquetSchema(t *table.Table) *parquet.Schema {
	group := parquet.Group{t.Key: parquet.Date()}
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Kind == table.Text {
			group[c.Name] = parquet.Optional(parquet.String())
		} else {
			group[c.Name] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		}
	}
	return parquet.NewSchema("fused", group)
}

// WriteParquet writes t as a zstd-compressed Parquet file.
func WriteParquet(w io.Writer, t *table.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	schema := ParquetSchema(t)

	// Group nodes order their fields by name; map each field to its source.
	fields := schema.Fields()
	src := make([]int, len(fields)) // -1 for the key, else column index
	for fi, f := range fields {
		if f.Name() == t.Key {
			src[fi] = -1
			continue
		}
		ci := t.Index(f.Name())
		if ci < 0 {
			return fmt.Errorf("parquet: field %q has no column", f.Name())
		}
		src[fi] = ci
	}

	pw := parquet.NewWriter(w, schema, parquet.Compression(&parquet.Zstd))
	epoch := time.Unix(0, 0).UTC()

	rows := make([]parquet.Row, 0, parquetRowGroup)
	for r, d := range t.Dates {
		row := make(parquet.Row, len(fields))
		for fi, ci := range src {
			if ci < 0 {
				days := int32(d.Sub(epoch).Hours() / 24)
				row[fi] = parquet.Int32Value(days).Level(0, 0, fi)
				continue
			}
			row[fi] = parquetValue(&t.Columns[ci], r).Level(0, definition(&t.Columns[ci], r), fi)
		}
		rows = append(rows, row)

		if len(rows) == parquetRowGroup {
			if _, err := pw.WriteRows(rows); err != nil {
				return fmt.Errorf("parquet write: %w", err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := pw.WriteRows(rows); err != nil {
			return fmt.Errorf("parquet write: %w", err)
		}
	}
	return pw.Close()
}

// SaveParquet writes t to path atomically.
func SaveParquet(path string, t *table.Table) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return WriteParquet(w, t)
	})
}

func definition(c *table.Column, row int) int {
	if c.IsMissing(row) {
		return 0
	}
	return 1
}

func parquetValue(c *table.Column, row int) parquet.Value {
	if c.IsMissing(row) {
		return parquet.NullValue()
	}
	if c.Kind == table.Text {
		return parquet.ByteArrayValue([]byte(c.Strings[row]))
	}
	return parquet.DoubleValue(c.Floats[row])
}
