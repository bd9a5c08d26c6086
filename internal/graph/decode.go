package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// coefficientDoc mirrors the artifact written by the correlation step:
//
//	{"graph": {"links": [{"source": "a", "target": "b", "value": 0.5}]}}
//
// Pointers distinguish absent fields from zero values.
type coefficientDoc struct {
	Graph *struct {
		Links *[]rawLink `json:"links"`
	} `json:"graph"`
}

type rawLink struct {
	Source *string         `json:"source"`
	Target *string         `json:"target"`
	Value  json.RawMessage `json:"value"`
}

// Decode reads a coefficient document and returns its records.
func Decode(r io.Reader) ([]Record, error) {
	var doc coefficientDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedGraphInput, err)
	}
	if doc.Graph == nil {
		return nil, fmt.Errorf("%w: missing \"graph\"", common.ErrMalformedGraphInput)
	}
	if doc.Graph.Links == nil {
		return nil, fmt.Errorf("%w: missing \"graph.links\"", common.ErrMalformedGraphInput)
	}

	links := *doc.Graph.Links
	records := make([]Record, len(links))
	for i, l := range links {
		switch {
		case l.Source == nil:
			return nil, fmt.Errorf("%w: link %d: missing \"source\"", common.ErrMalformedGraphInput, i)
		case l.Target == nil:
			return nil, fmt.Errorf("%w: link %d: missing \"target\"", common.ErrMalformedGraphInput, i)
		case l.Value == nil:
			return nil, fmt.Errorf("%w: link %d: missing \"value\"", common.ErrMalformedGraphInput, i)
		case string(l.Value) == "null":
			return nil, fmt.Errorf("%w: link %d: null \"value\"", common.ErrMalformedGraphInput, i)
		}
		var value float64
		if err := json.Unmarshal(l.Value, &value); err != nil {
			return nil, fmt.Errorf("%w: link %d: \"value\": %v", common.ErrMalformedGraphInput, i, err)
		}
		records[i] = Record{Source: *l.Source, Target: *l.Target, Value: value}
	}
	return records, nil
}

// Load reads the coefficient artifact at path. A missing file is a
// source-read error for this stage.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceRead, err)
	}
	defer f.Close()
	return Decode(f)
}
