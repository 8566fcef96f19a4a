package errors

import "fmt"

// SchemaViolationError reports a body row whose field count differs from the
// header's column count. Line is 1-based and counts every physical line of the
// input, preamble included.
type SchemaViolationError struct {
	Line     int
	Observed int
	Expected int
}

// NewSchemaViolation returns a schema violation for the given line.
func NewSchemaViolation(line, observed, expected int) *SchemaViolationError {
	return &SchemaViolationError{Line: line, Observed: observed, Expected: expected}
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s: line %d has %d fields, header declares %d columns",
		ErrorTypeSchemaViolation, e.Line, e.Observed, e.Expected)
}
