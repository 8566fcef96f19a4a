package vcf

import "strings"

const (
	metadataPrefix = "##"
	headerPrefix   = "#"
)

// LineKind is the classification of a single input line
type LineKind int

const (
	// KindBody is a tab-separated data row
	KindBody LineKind = iota
	// KindMetadata is a "##" preamble line
	KindMetadata
	// KindHeader is a line starting with a single "#"
	KindHeader
)

// String returns the lowercase name of the kind
func (k LineKind) String() string {
	switch k {
	case KindMetadata:
		return "metadata"
	case KindHeader:
		return "header"
	default:
		return "body"
	}
}

// Classify tags a line as metadata, header candidate or body
func Classify(line string) LineKind {
	switch {
	case strings.HasPrefix(line, metadataPrefix):
		return KindMetadata
	case strings.HasPrefix(line, headerPrefix):
		return KindHeader
	default:
		return KindBody
	}
}
