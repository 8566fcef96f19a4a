package vcf

import (
	"strings"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const fieldSeparator = "\t"

// Header is the ordered list of column names from the "#CHROM ..." line
type Header struct {
	Columns []string
}

// ParseHeader splits a header line into column names. The single leading
// "#" marker is dropped, so "#CHROM" becomes "CHROM". Column names must be
// non-empty and unique because they become columnar field names.
func ParseHeader(line string) (Header, error) {
	columns := strings.Split(strings.TrimPrefix(line, headerPrefix), fieldSeparator)

	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		if name == "" {
			return Header{}, errors.Newf(errors.ErrorTypeMalformedInput, "header column %d has an empty name", i+1)
		}
		if prev, ok := seen[name]; ok {
			return Header{}, errors.Newf(errors.ErrorTypeMalformedInput,
				"header column %q appears at positions %d and %d", name, prev+1, i+1)
		}
		seen[name] = i
	}

	return Header{Columns: columns}, nil
}

// Len returns the number of columns
func (h Header) Len() int {
	return len(h.Columns)
}

// SplitRow splits a body line into its tab-separated fields
func SplitRow(line string) []string {
	return strings.Split(line, fieldSeparator)
}
