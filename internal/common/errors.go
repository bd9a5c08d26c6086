package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the fusion pipeline. Wrap with fmt.Errorf("%w")
// and test with errors.Is.
var (
	ErrSourceRead          = errors.New("source read error")
	ErrSchemaMismatch      = errors.New("schema mismatch")
	ErrMalformedGraphInput = errors.New("malformed graph input")
	ErrExternalTool        = errors.New("external tool error")
)

// FileConflict describes how one file's header differs from the reference.
type FileConflict struct {
	File    string
	Missing []string // present in the reference file, absent here
	Extra   []string // present here, absent in the reference file
}

// SchemaConflictError reports CSV files in one directory that do not share
// the reference file's column set.
type SchemaConflictError struct {
	Source    string
	Reference string
	Conflicts []FileConflict
}

func (e *SchemaConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d file(s) differ from %s", e.Source, len(e.Conflicts), e.Reference)
	for _, c := range e.Conflicts {
		fmt.Fprintf(&b, "; %s", c.File)
		if len(c.Missing) > 0 {
			fmt.Fprintf(&b, " missing [%s]", strings.Join(c.Missing, ", "))
		}
		if len(c.Extra) > 0 {
			fmt.Fprintf(&b, " extra [%s]", strings.Join(c.Extra, ", "))
		}
	}
	return b.String()
}

func (e *SchemaConflictError) Unwrap() error {
	return ErrSchemaMismatch
}
