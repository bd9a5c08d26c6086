package solar

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// dgdStations are the three A/K blocks of a daily-geomagnetic-indices row.
var dgdStations = []string{"fredericksburg", "college", "planetary"}

func dgdHeader() []string {
	h := []string{"Date"}
	for _, st := range dgdStations {
		h = append(h, "A_"+st)
		for i := 1; i <= 8; i++ {
			h = append(h, fmt.Sprintf("K_%s_%d", st, i))
		}
	}
	return h
}

// splitDGDFields splits a data row on whitespace, then separates the -1
// placeholders that fixed-width K columns print without a gap
// ("-1-1-1" is three fields).
func splitDGDFields(line string) []string {
	var fields []string
	for _, tok := range strings.Fields(line) {
		start := 0
		for i := 1; i < len(tok); i++ {
			if tok[i] == '-' {
				fields = append(fields, tok[start:i])
				start = i
			}
		}
		fields = append(fields, tok[start:])
	}
	return fields
}

// ConvertDGD rewrites the SWPC daily-geomagnetic-indices text product as
// CSV keyed by Date (YYYY-MM-DD). Comment lines (":" or "#") and rows that
// do not carry all three station blocks are skipped. The product's -1
// placeholder becomes an empty cell.
func ConvertDGD(r io.Reader, w io.Writer) error {
	header := dgdHeader()
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	record := make([]string, len(header))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == ':' || line[0] == '#' {
			continue
		}
		fields := splitDGDFields(line)
		if len(fields) != 3+len(header)-1 {
			continue
		}
		record[0] = fmt.Sprintf("%s-%s-%s", fields[0], fields[1], fields[2])
		for i, v := range fields[3:] {
			if v == "-1" || v == "-1.00" {
				v = ""
			}
			record[i+1] = v
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
