package warehouse

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidPayload is returned when a summary payload is missing or has no observation_summary key.
var ErrInvalidPayload = errors.New("summary payload is missing or invalid")

// TableFailure is the failure to write one table.
type TableFailure struct {
	Table string
	Err   error
}

// LoadError reports warehouse write failures, one entry per table that failed.
type LoadError struct {
	Failures []TableFailure
}

func newLoadError(table string, err error) *LoadError {
	return &LoadError{Failures: []TableFailure{{Table: table, Err: err}}}
}

// add records err against table. The failures of a *LoadError are merged rather than nested.
func (e *LoadError) add(table string, err error) {
	var le *LoadError
	if errors.As(err, &le) {
		e.Failures = append(e.Failures, le.Failures...)
		return
	}
	e.Failures = append(e.Failures, TableFailure{Table: table, Err: err})
}

func (e *LoadError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%v: %v", f.Table, f.Err))
	}
	return fmt.Sprintf("error loading %v table(s): %v", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *LoadError) Unwrap() []error {
	retval := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		retval = append(retval, f.Err)
	}
	return retval
}

// FailedTables returns the names of the tables that failed, sorted.
func (e *LoadError) FailedTables() []string {
	retval := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		retval = append(retval, f.Table)
	}
	sort.Strings(retval)
	return retval
}
