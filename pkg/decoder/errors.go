package decoder

import (
	"fmt"
	"strings"
)

// EmptyInputError is returned when an upload is empty after trimming
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "CSV file is empty"
}

// SchemaError is returned when the header line cannot be used
type SchemaError struct {
	Reason  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("invalid CSV header: %s: %s", e.Reason, strings.Join(e.Missing, ", "))
	}
	return "invalid CSV header: " + e.Reason
}

// MalformedRowError is returned under MalformedAbort
type MalformedRowError struct {
	Line int
	Err  error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at line %d: %v", e.Line, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}
