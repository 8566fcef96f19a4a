// Package columnar writes and reads the tabular artifact of a conversion.
// Every column is a non-nullable UTF-8 string; rows arrive in batches and
// each batch is appended to the sink in order.
package columnar

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// Format represents a columnar storage format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Arrow is the Apache Arrow IPC file format
	Arrow Format = "arrow"
	// Avro is Apache Avro object container format
	Avro Format = "avro"
)

// Writer appends batches of string rows to a columnar artifact
type Writer interface {
	// WriteBatch appends rows as one unit. Every row must have one field per column.
	WriteBatch(rows [][]string) error
	// Close finalizes the artifact (footer, trailing blocks)
	Close() error
	// Format returns the columnar format
	Format() Format
	// BytesWritten returns bytes handed to the underlying writer so far
	BytesWritten() int64
	// RowsWritten returns rows appended so far
	RowsWritten() int64
}

// Reader iterates over the rows of a columnar artifact
type Reader interface {
	// Columns returns the column names in schema order
	Columns() []string
	// Next returns the next row, or io.EOF after the last one
	Next() ([]string, error)
	// NumRows returns the total row count, or -1 when the format does not record it
	NumRows() int64
	// Format returns the columnar format
	Format() Format
	// Close releases the reader
	Close() error
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Format      Format
	Columns     []string
	Compression string
	// RowGroupRows groups consecutive batches into Parquet row groups of at
	// least this many rows. Zero writes one row group per batch.
	RowGroupRows int
	Allocator    memory.Allocator
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:      Parquet,
		Compression: "snappy",
	}
}

// ReaderConfig configures columnar readers
type ReaderConfig struct {
	Format    Format
	BatchSize int64
	Allocator memory.Allocator
}

// DefaultReaderConfig returns default reader configuration
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		Format:    Parquet,
		BatchSize: 10000,
	}
}

// ReadAtSeeker is the random access input required by the footer-indexed formats
type ReadAtSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// NewWriter creates a new columnar writer
func NewWriter(w io.Writer, config *WriterConfig) (Writer, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if len(config.Columns) == 0 {
		return nil, errors.New(errors.ErrorTypeInternal, "columnar writer needs at least one column")
	}
	if config.Allocator == nil {
		config.Allocator = memory.DefaultAllocator
	}

	switch config.Format {
	case Parquet:
		return newParquetWriter(w, config)
	case Arrow:
		return newArrowWriter(w, config)
	case Avro:
		return newAvroWriter(w, config)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", config.Format)
	}
}

// NewReader creates a new columnar reader
func NewReader(r ReadAtSeeker, config *ReaderConfig) (Reader, error) {
	if config == nil {
		config = DefaultReaderConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReaderConfig().BatchSize
	}
	if config.Allocator == nil {
		config.Allocator = memory.DefaultAllocator
	}

	switch config.Format {
	case Parquet:
		return newParquetReader(r, config)
	case Arrow:
		return newArrowReader(r, config)
	case Avro:
		return newAvroReader(r, config)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", config.Format)
	}
}

// Open opens an artifact on disk, choosing the format from its extension
func Open(path string) (Reader, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInvalidInput, "cannot infer columnar format of %s", path)
	}

	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open artifact").WithDetail("path", path)
	}

	cfg := DefaultReaderConfig()
	cfg.Format = format
	r, err := NewReader(f, cfg)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileReader{Reader: r, file: f}, nil
}

type fileReader struct {
	Reader
	file *os.File
}

func (r *fileReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadRows reads up to limit rows from r (all rows when limit <= 0)
func ReadRows(r Reader, limit int) ([][]string, error) {
	var rows [][]string
	for limit <= 0 || len(rows) < limit {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseFormat maps a configuration name to a Format
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case Parquet, Arrow, Avro:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", name)
	}
}

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	for _, f := range []Format{Parquet, Arrow, Avro} {
		if GetFormatInfo(f).FileExtension == ext {
			return f, true
		}
	}
	return "", false
}

// FormatInfo provides information about columnar formats
type FormatInfo struct {
	Format           Format
	Name             string
	Description      string
	FileExtension    string
	MIMEType         string
	SupportsCompress bool
	SupportsRowCount bool
}

// GetFormatInfo returns information about a columnar format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case Parquet:
		return &FormatInfo{
			Format:           Parquet,
			Name:             "Apache Parquet",
			Description:      "Columnar storage format optimized for analytics",
			FileExtension:    ".parquet",
			MIMEType:         "application/x-parquet",
			SupportsCompress: true,
			SupportsRowCount: true,
		}
	case Arrow:
		return &FormatInfo{
			Format:           Arrow,
			Name:             "Apache Arrow",
			Description:      "In-memory columnar format",
			FileExtension:    ".arrow",
			MIMEType:         "application/vnd.apache.arrow.file",
			SupportsCompress: true,
			SupportsRowCount: true,
		}
	case Avro:
		return &FormatInfo{
			Format:           Avro,
			Name:             "Apache Avro",
			Description:      "Row-oriented data serialization format",
			FileExtension:    ".avro",
			MIMEType:         "application/avro",
			SupportsCompress: true,
			SupportsRowCount: false,
		}
	default:
		return nil
	}
}

// countingWriter tracks the bytes handed to the destination
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func checkArity(rows [][]string, columns int) error {
	for i, row := range rows {
		if len(row) != columns {
			return errors.Newf(errors.ErrorTypeInternal,
				"batch row %d has %d fields, writer expects %d", i, len(row), columns)
		}
	}
	return nil
}
