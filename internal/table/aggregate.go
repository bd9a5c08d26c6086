package table

import (
	"math"
	"sort"
	"time"
)

// Aggregate groups rows by date (ascending) and reduces every value column
// to one value per date: float-backed columns take the arithmetic mean of
// their non-missing values, Text columns keep the first non-empty value.
// Bool columns become Numeric (the mean of 0/1 is a fraction).
//
// Aggregate is idempotent and never modifies t.
func Aggregate(t *Table) *Table {
	groups := make(map[time.Time][]int, len(t.Dates))
	var order []time.Time
	for i, d := range t.Dates {
		if _, ok := groups[d]; !ok {
			order = append(order, d)
		}
		groups[d] = append(groups[d], i)
	}
	sort.Slice(order, func(a, b int) bool { return order[a].Before(order[b]) })

	out := &Table{
		Key:     t.Key,
		Dates:   order,
		Columns: make([]Column, len(t.Columns)),
	}

	for ci := range t.Columns {
		src := &t.Columns[ci]
		dst := Column{Name: src.Name, Kind: src.Kind}
		if src.Kind == Bool {
			dst.Kind = Numeric
		}

		if src.Kind.FloatBacked() {
			dst.Floats = make([]float64, len(order))
			for gi, d := range order {
				dst.Floats[gi] = mean(src.Floats, groups[d])
			}
		} else {
			dst.Strings = make([]string, len(order))
			for gi, d := range order {
				for _, row := range groups[d] {
					if s := src.Strings[row]; s != "" {
						dst.Strings[gi] = s
						break
					}
				}
			}
		}
		out.Columns[ci] = dst
	}

	return out
}

func mean(values []float64, rows []int) float64 {
	var sum float64
	var n int
	for _, r := range rows {
		v := values[r]
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sum
	}
	return sum / float64(n)
}
