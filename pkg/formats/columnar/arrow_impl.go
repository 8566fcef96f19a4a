package columnar

import (
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// arrowWriter implements Writer for the Arrow IPC file format
type arrowWriter struct {
	out           *countingWriter
	config        *WriterConfig
	fileWriter    *ipc.FileWriter
	recordBuilder *array.RecordBuilder
	rowsWritten   int64
	mu            sync.Mutex
}

func newArrowWriter(w io.Writer, config *WriterConfig) (*arrowWriter, error) {
	arrowSchema := stringSchema(config.Columns)
	out := &countingWriter{w: w}

	opts := []ipc.Option{ipc.WithSchema(arrowSchema), ipc.WithAllocator(config.Allocator)}
	switch config.Compression {
	case "", "none":
	case "zstd":
		opts = append(opts, ipc.WithZstd())
	case "lz4":
		opts = append(opts, ipc.WithLZ4())
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"compression %q is not supported by format %q", config.Compression, Arrow)
	}

	fw, err := ipc.NewFileWriter(out, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create Arrow writer")
	}

	return &arrowWriter{
		out:           out,
		config:        config,
		fileWriter:    fw,
		recordBuilder: array.NewRecordBuilder(config.Allocator, arrowSchema),
	}, nil
}

func (aw *arrowWriter) WriteBatch(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := checkArity(rows, len(aw.config.Columns)); err != nil {
		return err
	}

	aw.mu.Lock()
	defer aw.mu.Unlock()

	record := buildRecord(aw.recordBuilder, rows)
	defer record.Release()

	if err := aw.fileWriter.Write(record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write Arrow record batch")
	}

	aw.rowsWritten += int64(len(rows))
	return nil
}

func (aw *arrowWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	aw.recordBuilder.Release()
	if err := aw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close Arrow writer")
	}
	return nil
}

func (aw *arrowWriter) Format() Format {
	return Arrow
}

func (aw *arrowWriter) BytesWritten() int64 {
	return aw.out.n
}

func (aw *arrowWriter) RowsWritten() int64 {
	return aw.rowsWritten
}

// arrowReader implements Reader for the Arrow IPC file format
type arrowReader struct {
	fileReader *ipc.FileReader
	columns    []string
	current    arrow.Record
	currentRow int
	batchIndex int
	numRows    int64
}

func newArrowReader(r ReadAtSeeker, config *ReaderConfig) (*arrowReader, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(config.Allocator))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to open Arrow file")
	}

	ar := &arrowReader{
		fileReader: fr,
		columns:    schemaColumns(fr.Schema()),
		batchIndex: -1,
		numRows:    -1,
	}
	return ar, nil
}

func (ar *arrowReader) Columns() []string {
	return ar.columns
}

func (ar *arrowReader) Next() ([]string, error) {
	for ar.current == nil || ar.currentRow >= int(ar.current.NumRows()) {
		ar.batchIndex++
		if ar.batchIndex >= ar.fileReader.NumRecords() {
			ar.current = nil
			return nil, io.EOF
		}

		// owned by the file reader until the next Record call
		record, err := ar.fileReader.Record(ar.batchIndex)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read Arrow record batch").
				WithDetail("batch", ar.batchIndex)
		}
		ar.current = record
		ar.currentRow = 0
	}

	row := rowAt(ar.current, ar.currentRow)
	ar.currentRow++
	return row, nil
}

// NumRows sums the batch lengths; the first call reads every batch header
func (ar *arrowReader) NumRows() int64 {
	if ar.numRows >= 0 {
		return ar.numRows
	}

	var total int64
	for i := 0; i < ar.fileReader.NumRecords(); i++ {
		record, err := ar.fileReader.RecordAt(i)
		if err != nil {
			return -1
		}
		total += record.NumRows()
		record.Release()
	}
	ar.numRows = total
	return total
}

func (ar *arrowReader) Format() Format {
	return Arrow
}

func (ar *arrowReader) Close() error {
	return ar.fileReader.Close()
}
