package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/table"
)

// inferKind picks the narrowest kind that accepts every non-empty cell:
// numeric, then bool, then temporal, falling back to text. A column with no
// values at all is numeric (all missing).
func inferKind(cells []string) table.Kind {
	numeric, boolean, temporal := true, true, true
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if isMissing(c) {
			continue
		}
		if numeric {
			if _, err := strconv.ParseFloat(c, 64); err != nil {
				numeric = false
			}
		}
		if boolean {
			if _, ok := parseBool(c); !ok {
				boolean = false
			}
		}
		if temporal && !numeric {
			if _, err := parseDate(c); err != nil {
				temporal = false
			}
		}
		if !numeric && !boolean && !temporal {
			return table.Text
		}
	}
	switch {
	case numeric:
		return table.Numeric
	case boolean:
		return table.Bool
	case temporal:
		return table.Temporal
	}
	return table.Text
}

// buildColumn converts raw cells to a typed column of the given kind.
// Cells that fail conversion become missing values.
func buildColumn(name string, kind table.Kind, cells []string) table.Column {
	col := table.Column{Name: name, Kind: kind}
	if !kind.FloatBacked() {
		col.Strings = make([]string, len(cells))
		for i, c := range cells {
			if !isMissing(strings.TrimSpace(c)) {
				col.Strings[i] = c
			}
		}
		return col
	}

	col.Floats = make([]float64, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(c)
		v := math.NaN()
		if !isMissing(c) {
			switch kind {
			case table.Numeric:
				if f, err := strconv.ParseFloat(c, 64); err == nil {
					v = f
				}
			case table.Bool:
				if b, ok := parseBool(c); ok {
					v = 0
					if b {
						v = 1
					}
				}
			case table.Temporal:
				if ts, err := parseDate(c); err == nil {
					v = float64(ts.Unix())
				}
			}
		}
		col.Floats[i] = v
	}
	return col
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func isMissing(s string) bool {
	switch s {
	case "", "NaN", "nan", "NA", "N/A", "null", "None":
		return true
	}
	return false
}
