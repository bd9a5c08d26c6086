package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// readJSON reads a JSON array of flat objects, e.g. the SWPC solar-cycle
// feeds:
//
//	[{"time-tag": "2024-01", "ssn": 123.0, "f10.7": 166.6}, ...]
//
// Keys are kept in order of first appearance; objects missing a key get an
// empty cell.
func readJSON(r io.Reader, name string) (*rawTable, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceRead, name, err)
	}

	raw := &rawTable{}
	index := map[string]int{}
	var objects []map[string]string

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %v", common.ErrSourceRead, name, len(objects)+1, err)
		}
		obj := map[string]string{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceRead, name, err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s: unexpected token %v", common.ErrSourceRead, name, tok)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("%w: %s: key %q: %v", common.ErrSourceRead, name, key, err)
			}
			if _, seen := index[key]; !seen {
				index[key] = len(raw.header)
				raw.header = append(raw.header, key)
			}
			obj[key] = cellString(v)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceRead, name, err)
		}
		objects = append(objects, obj)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrSourceRead, name, err)
	}

	raw.rows = make([][]string, len(objects))
	for i, obj := range objects {
		row := make([]string, len(raw.header))
		for k, v := range obj {
			row[index[k]] = v
		}
		raw.rows[i] = row
	}
	return raw, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
