package vcf

import (
	"fmt"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// SeparatorPolicy decides how a metadata line without '=' is handled
type SeparatorPolicy int

const (
	// FailOnMissingSeparator rejects the line as malformed input
	FailOnMissingSeparator SeparatorPolicy = iota
	// RecordMissingSeparator keeps the line's text as a key with no values
	RecordMissingSeparator
)

// ParseSeparatorPolicy maps the configuration names "error" and "record"
func ParseSeparatorPolicy(name string) (SeparatorPolicy, error) {
	switch name {
	case "", "error":
		return FailOnMissingSeparator, nil
	case "record":
		return RecordMissingSeparator, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig, "unknown missing separator policy %q", name)
	}
}

// Accumulator folds metadata lines into a Document in input order
type Accumulator struct {
	doc    *Document
	policy SeparatorPolicy
}

// NewAccumulator creates an accumulator with an empty document
func NewAccumulator(policy SeparatorPolicy) *Accumulator {
	return &Accumulator{doc: NewDocument(), policy: policy}
}

// Add parses one "##" line. lineNo is used only for error reporting.
func (a *Accumulator) Add(lineNo int, line string) error {
	entry, err := ParseEntry(line)
	if err == ErrMissingSeparator {
		if a.policy == RecordMissingSeparator && entry.Key != "" {
			a.doc.AddKey(entry.Key)
			return nil
		}
		return errors.Wrap(err, errors.ErrorTypeMalformedInput, fmt.Sprintf("line %d: invalid metadata line", lineNo)).
			WithDetail("line", lineNo)
	}
	if entry.Key == "" {
		return errors.Newf(errors.ErrorTypeMalformedInput, "line %d: metadata line has an empty key", lineNo).
			WithDetail("line", lineNo)
	}

	a.doc.Add(entry.Key, ParseValue(entry.RawValue))
	return nil
}

// Document returns the accumulated document
func (a *Accumulator) Document() *Document {
	return a.doc
}
