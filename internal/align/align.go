// Package align fuses several time-indexed tables into one by successive
// left joins on a shared date key.
package align

import (
	"fmt"
	"math"
	"time"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// Input is one table to align. Table.Key names the table's own date column
// (Obsdate, time-tag, ...); it is renamed to the canonical key.
type Input struct {
	Name  string
	Table *table.Table
}

// Align left-joins inputs[1:] onto inputs[0] (the anchor) on exact day
// equality of their date columns, renamed to key.
//
// The result has exactly the anchor's rows, in the anchor's order. Columns
// follow join order. Anchor dates with no match get missing values; right
// rows with no matching anchor date are dropped; when a right table repeats
// a date, its first row for that date is used. Inputs are not modified.
func Align(key string, inputs ...Input) (*table.Table, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("align: no inputs")
	}

	anchor, err := rekey(inputs[0], key)
	if err != nil {
		return nil, err
	}
	out := anchor.Clone()

	for _, in := range inputs[1:] {
		right, err := rekey(in, key)
		if err != nil {
			return nil, err
		}
		if err := joinLeft(out, right, in.Name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rekey validates an input and returns a shallow view with its date column
// renamed to key.
func rekey(in Input, key string) (*table.Table, error) {
	if in.Table == nil {
		return nil, fmt.Errorf("align: %s: nil table", in.Name)
	}
	if in.Table.Key != key && in.Table.Index(key) >= 0 {
		return nil, fmt.Errorf("%w: %s: renaming %q to %q collides with an existing column",
			common.ErrSchemaMismatch, in.Name, in.Table.Key, key)
	}
	view := *in.Table
	view.Key = key
	return &view, nil
}

// joinLeft appends right's columns to acc, matched by date.
func joinLeft(acc, right *table.Table, name string) error {
	for i := range right.Columns {
		n := right.Columns[i].Name
		if acc.Index(n) >= 0 {
			return fmt.Errorf("%w: %s: column %q already present in the fused table",
				common.ErrSchemaMismatch, name, n)
		}
	}

	firstRow := make(map[time.Time]int, len(right.Dates))
	for i, d := range right.Dates {
		if _, ok := firstRow[d]; !ok {
			firstRow[d] = i
		}
	}

	// match[i] is the right row for acc row i, or -1.
	match := make([]int, len(acc.Dates))
	for i, d := range acc.Dates {
		if r, ok := firstRow[d]; ok {
			match[i] = r
		} else {
			match[i] = -1
		}
	}

	for ci := range right.Columns {
		src := &right.Columns[ci]
		dst := table.Column{Name: src.Name, Kind: src.Kind}
		if src.Kind.FloatBacked() {
			dst.Floats = make([]float64, len(match))
			for i, r := range match {
				if r < 0 {
					dst.Floats[i] = math.NaN()
				} else {
					dst.Floats[i] = src.Floats[r]
				}
			}
		} else {
			dst.Strings = make([]string, len(match))
			for i, r := range match {
				if r >= 0 {
					dst.Strings[i] = src.Strings[r]
				}
			}
		}
		acc.Columns = append(acc.Columns, dst)
	}
	return nil
}
