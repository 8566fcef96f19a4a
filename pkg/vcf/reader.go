package vcf

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// Row is one body line split into fields
type Row struct {
	// Line is the 1-based physical line number in the input
	Line   int
	Fields []string
}

// Reader walks a LineSource through the preamble, the header and the body
type Reader struct {
	src         *LineSource
	accumulator *Accumulator
	header      Header
	hasHeader   bool
	maxLines    int
	logger      *zap.Logger
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithSeparatorPolicy sets the missing '=' policy for metadata lines
func WithSeparatorPolicy(p SeparatorPolicy) ReaderOption {
	return func(r *Reader) {
		r.accumulator = NewAccumulator(p)
	}
}

// WithMaxLines stops reading after n physical lines (0 = unlimited)
func WithMaxLines(n int) ReaderOption {
	return func(r *Reader) {
		r.maxLines = n
	}
}

// WithLogger sets the reader's logger
func WithLogger(logger *zap.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader creates a reader over src
func NewReader(src *LineSource, opts ...ReaderOption) *Reader {
	r := &Reader{
		src:         src,
		accumulator: NewAccumulator(FailOnMissingSeparator),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) next() (string, error) {
	if r.maxLines > 0 && r.src.LineNumber() >= r.maxLines {
		return "", io.EOF
	}
	return r.src.Next()
}

// ReadPreamble consumes metadata lines and the header line. It must be
// called exactly once, before Next.
func (r *Reader) ReadPreamble() (*Document, Header, error) {
	for {
		line, err := r.next()
		if err == io.EOF {
			return nil, Header{}, errors.New(errors.ErrorTypeMalformedInput, "input ended before the header line")
		}
		if err != nil {
			return nil, Header{}, err
		}
		lineNo := r.src.LineNumber()

		switch Classify(line) {
		case KindMetadata:
			if err := r.accumulator.Add(lineNo, line); err != nil {
				return nil, Header{}, err
			}
		case KindHeader:
			header, err := ParseHeader(line)
			if err != nil {
				var e *errors.Error
				if errors.As(err, &e) {
					e.Message = fmt.Sprintf("line %d: %s", lineNo, e.Message)
					e.WithDetail("line", lineNo)
				}
				return nil, Header{}, err
			}
			r.header = header
			r.hasHeader = true

			doc := r.accumulator.Document()
			r.logger.Debug("preamble resolved",
				zap.Int("header_line", lineNo),
				zap.Int("metadata_keys", doc.Len()),
				zap.Int("metadata_entries", doc.EntryCount()),
				zap.Strings("columns", header.Columns))
			return doc, header, nil
		default:
			return nil, Header{}, errors.Newf(errors.ErrorTypeMalformedInput,
				"line %d: data row appears before the header line", lineNo).
				WithDetail("line", lineNo)
		}
	}
}

// Next returns the next body row, or io.EOF at the end of the input.
// A "#"-prefixed line is malformed input and a row whose arity differs
// from the header is a schema violation.
func (r *Reader) Next() (Row, error) {
	if !r.hasHeader {
		return Row{}, errors.New(errors.ErrorTypeInternal, "Next called before ReadPreamble")
	}

	line, err := r.next()
	if err != nil {
		return Row{}, err
	}
	lineNo := r.src.LineNumber()

	if kind := Classify(line); kind != KindBody {
		return Row{}, errors.Newf(errors.ErrorTypeMalformedInput,
			"line %d: unexpected %s line after the header", lineNo, kind).
			WithDetail("line", lineNo)
	}

	fields := SplitRow(line)
	if len(fields) != r.header.Len() {
		return Row{}, errors.NewSchemaViolation(lineNo, len(fields), r.header.Len())
	}
	return Row{Line: lineNo, Fields: fields}, nil
}

// Header returns the resolved header
func (r *Reader) Header() Header {
	return r.header
}

// LineNumber returns the number of lines consumed so far
func (r *Reader) LineNumber() int {
	return r.src.LineNumber()
}

// BytesRead returns the raw bytes consumed from the input
func (r *Reader) BytesRead() int64 {
	return r.src.BytesRead()
}
