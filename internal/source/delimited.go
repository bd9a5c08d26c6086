package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// readCSV reads a comma-separated file with a header row.
func readCSV(r io.Reader, name string) (*rawTable, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: empty file", common.ErrSourceRead, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: header: %v", common.ErrSourceRead, name, err)
	}
	// Excel-exported files lead with a BOM.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	raw := &rawTable{header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceRead, name, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		raw.rows = append(raw.rows, record)
	}
	return raw, nil
}

// readWhitespace reads a whitespace-aligned text table (Penticton
// fluxtable.txt). The first non-empty line is the header; rows made only of
// dashes separate the header from the data and are skipped.
func readWhitespace(r io.Reader, name string) (*rawTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var raw *rawTable
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.Trim(line, "- ") == "" {
			continue
		}
		fields := strings.Fields(line)
		if raw == nil {
			raw = &rawTable{header: fields}
			continue
		}
		raw.rows = append(raw.rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceRead, name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s: empty file", common.ErrSourceRead, name)
	}
	return raw, nil
}
