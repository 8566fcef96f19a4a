package columnar

import (
	"context"
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const createdBy = "vcf2parquet"

// parquetWriter implements Writer for Parquet format
type parquetWriter struct {
	out           *countingWriter
	config        *WriterConfig
	arrowSchema   *arrow.Schema
	fileWriter    *pqarrow.FileWriter
	recordBuilder *array.RecordBuilder
	rowsWritten   int64
	groupRows     int
	mu            sync.Mutex
}

func newParquetWriter(w io.Writer, config *WriterConfig) (*parquetWriter, error) {
	codec, err := parquetCompression(config.Compression)
	if err != nil {
		return nil, err
	}

	arrowSchema := stringSchema(config.Columns)
	out := &countingWriter{w: w}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithCreatedBy(createdBy),
		parquet.WithAllocator(config.Allocator),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(config.Allocator),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(arrowSchema, out, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create Parquet writer")
	}

	return &parquetWriter{
		out:           out,
		config:        config,
		arrowSchema:   arrowSchema,
		fileWriter:    fw,
		recordBuilder: array.NewRecordBuilder(config.Allocator, arrowSchema),
	}, nil
}

func (pw *parquetWriter) WriteBatch(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := checkArity(rows, len(pw.config.Columns)); err != nil {
		return err
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()

	record := buildRecord(pw.recordBuilder, rows)
	defer record.Release()

	if pw.config.RowGroupRows <= 0 {
		// one row group per batch
		if err := pw.fileWriter.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write Parquet row group")
		}
	} else {
		if pw.groupRows >= pw.config.RowGroupRows {
			pw.fileWriter.NewBufferedRowGroup()
			pw.groupRows = 0
		}
		if err := pw.fileWriter.WriteBuffered(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to buffer Parquet batch")
		}
		pw.groupRows += len(rows)
	}

	pw.rowsWritten += int64(len(rows))
	return nil
}

func (pw *parquetWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.recordBuilder.Release()
	if err := pw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close Parquet writer")
	}
	return nil
}

func (pw *parquetWriter) Format() Format {
	return Parquet
}

func (pw *parquetWriter) BytesWritten() int64 {
	return pw.out.n
}

func (pw *parquetWriter) RowsWritten() int64 {
	return pw.rowsWritten
}

// parquetReader implements Reader for Parquet format
type parquetReader struct {
	fileReader   *file.Reader
	recordReader pqarrow.RecordReader
	columns      []string
	current      arrow.Record
	currentRow   int
}

// borrowedSource hides Close from file.Reader, which otherwise closes any
// io.Closer source. The caller of NewReader owns the source.
type borrowedSource struct {
	ReadAtSeeker
}

func newParquetReader(r ReadAtSeeker, config *ReaderConfig) (*parquetReader, error) {
	fr, err := file.NewParquetReader(borrowedSource{r}, file.WithReadProps(parquet.NewReaderProperties(config.Allocator)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to open Parquet file")
	}

	arrowReader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{BatchSize: config.BatchSize}, config.Allocator)
	if err != nil {
		_ = fr.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to create Arrow reader")
	}

	arrowSchema, err := arrowReader.Schema()
	if err != nil {
		_ = fr.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to read Parquet schema")
	}

	rr, err := arrowReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		_ = fr.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to create record reader")
	}

	return &parquetReader{
		fileReader:   fr,
		recordReader: rr,
		columns:      schemaColumns(arrowSchema),
	}, nil
}

func (pr *parquetReader) Columns() []string {
	return pr.columns
}

func (pr *parquetReader) Next() ([]string, error) {
	for pr.current == nil || pr.currentRow >= int(pr.current.NumRows()) {
		// the record is owned by the record reader and replaced on Next
		if !pr.recordReader.Next() {
			pr.current = nil
			if err := pr.recordReader.Err(); err != nil && err != io.EOF {
				return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read Parquet batch")
			}
			return nil, io.EOF
		}
		pr.current = pr.recordReader.Record()
		pr.currentRow = 0
	}

	row := rowAt(pr.current, pr.currentRow)
	pr.currentRow++
	return row, nil
}

func (pr *parquetReader) NumRows() int64 {
	return pr.fileReader.NumRows()
}

func (pr *parquetReader) Format() Format {
	return Parquet
}

func (pr *parquetReader) Close() error {
	pr.recordReader.Release()
	return pr.fileReader.Close()
}

func parquetCompression(name string) (compress.Compression, error) {
	switch name {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig,
			"compression %q is not supported by format %q", name, Parquet)
	}
}
