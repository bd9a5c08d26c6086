// Package table holds the in-memory time-indexed table shared by the
// normalizer, the aligner and the artifact writers.
//
// A Table is keyed by one temporal column at day granularity. Value columns
// are either float-backed (Numeric, Bool, Temporal) with NaN marking a
// missing value, or Text with "" marking a missing value.
package table

import (
	"fmt"
	"math"
	"time"
)

// Kind is the semantic type of a column.
type Kind int

const (
	Numeric  Kind = iota // float64 values
	Bool                 // 0/1 stored as float64
	Temporal             // Unix seconds stored as float64
	Text                 // strings, never aggregated
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Bool:
		return "bool"
	case Temporal:
		return "temporal"
	case Text:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FloatBacked reports whether values live in Column.Floats.
func (k Kind) FloatBacked() bool {
	return k != Text
}

// Column is one named value column. Exactly one of Floats / Strings is used,
// depending on Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind.FloatBacked() {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind.FloatBacked() {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	return out
}

// Table is a set of columns keyed by a day-granularity date column.
type Table struct {
	Key     string      // name of the temporal key column
	Dates   []time.Time // key values, UTC midnight
	Columns []Column
}

// New returns an empty table keyed by key.
func New(key string) *Table {
	return &Table{Key: key}
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	return len(t.Dates)
}

// ColumnNames returns the value column names in order (key excluded).
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// Index returns the position of the named value column, or -1.
func (t *Table) Index(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named value column, or nil.
func (t *Table) Column(name string) *Column {
	if i := t.Index(name); i >= 0 {
		return &t.Columns[i]
	}
	return nil
}

// Clone returns a deep copy; stages never share backing arrays.
func (t *Table) Clone() *Table {
	out := &Table{
		Key:     t.Key,
		Dates:   append([]time.Time(nil), t.Dates...),
		Columns: make([]Column, len(t.Columns)),
	}
	for i := range t.Columns {
		out.Columns[i] = t.Columns[i].Clone()
	}
	return out
}

// Validate checks that every column has one value per row and that names
// are unique and distinct from the key.
func (t *Table) Validate() error {
	seen := map[string]bool{t.Key: true}
	for i := range t.Columns {
		c := &t.Columns[i]
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Len() != len(t.Dates) {
			return fmt.Errorf("column %q has %d values, want %d", c.Name, c.Len(), len(t.Dates))
		}
	}
	return nil
}

// Day truncates ts to UTC midnight of its wall-clock date. The location is
// dropped without conversion, so 23:30 local stays on the same day.
func Day(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
