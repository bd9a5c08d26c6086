package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/common"
)

// csvPatterns are the file names picked up from a satellite directory.
var csvPatterns = []string{"*.csv", "*.csv.gz", "*.csv.zst"}

// listCSVFiles returns the CSV files in dir, sorted by name.
func listCSVFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceRead, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", common.ErrSourceRead, dir)
	}

	var files []string
	for _, p := range csvPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrSourceRead, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no CSV files in %s", common.ErrSourceRead, dir)
	}
	sort.Strings(files)
	return files, nil
}

// concatCSV stacks the rows of several files that share one column set.
// Column order follows the first file; a file whose column set differs is
// reported in a SchemaConflictError instead of producing sparse columns.
func concatCSV(source string, files []string, parts []*rawTable) (*rawTable, error) {
	ref := parts[0]
	refIndex := make(map[string]int, len(ref.header))
	for i, h := range ref.header {
		refIndex[h] = i
	}

	conflict := &common.SchemaConflictError{
		Source:    source,
		Reference: filepath.Base(files[0]),
	}
	for fi := 1; fi < len(parts); fi++ {
		if c, ok := diffHeader(ref.header, parts[fi].header); !ok {
			c.File = filepath.Base(files[fi])
			conflict.Conflicts = append(conflict.Conflicts, c)
		}
	}
	if len(conflict.Conflicts) > 0 {
		return nil, conflict
	}

	out := &rawTable{header: ref.header}
	for _, part := range parts {
		perm := make([]int, len(part.header))
		for i, h := range part.header {
			perm[i] = refIndex[h]
		}
		for _, row := range part.rows {
			aligned := make([]string, len(ref.header))
			for i, cell := range row {
				if i < len(perm) {
					aligned[perm[i]] = cell
				}
			}
			out.rows = append(out.rows, aligned)
		}
	}
	return out, nil
}

func diffHeader(ref, other []string) (common.FileConflict, bool) {
	in := func(set []string) map[string]bool {
		m := make(map[string]bool, len(set))
		for _, s := range set {
			m[s] = true
		}
		return m
	}
	refSet, otherSet := in(ref), in(other)

	var c common.FileConflict
	for _, h := range ref {
		if !otherSet[h] {
			c.Missing = append(c.Missing, h)
		}
	}
	for _, h := range other {
		if !refSet[h] {
			c.Extra = append(c.Extra, h)
		}
	}
	return c, len(c.Missing) == 0 && len(c.Extra) == 0
}
