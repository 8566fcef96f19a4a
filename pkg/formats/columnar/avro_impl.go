package columnar

import (
	"io"
	"sync"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/json"
)

const avroRecordName = "vcf_row"

// avroField is the subset of an Avro record field the converter writes
type avroField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Doc  string `json:"doc,omitempty"`
}

type avroSchema struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// avroWriter implements Writer for the Avro object container format
type avroWriter struct {
	out         *countingWriter
	config      *WriterConfig
	ocfWriter   *goavro.OCFWriter
	fieldNames  []string
	rowsWritten int64
	mu          sync.Mutex
}

func newAvroWriter(w io.Writer, config *WriterConfig) (*avroWriter, error) {
	compression, err := avroCompression(config.Compression)
	if err != nil {
		return nil, err
	}

	schema, fieldNames := columnsToAvroSchema(config.Columns)
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode Avro schema")
	}

	codec, err := goavro.NewCodec(string(schemaJSON))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create Avro codec")
	}

	out := &countingWriter{w: w}
	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               out,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create Avro writer")
	}

	return &avroWriter{
		out:        out,
		config:     config,
		ocfWriter:  ocfWriter,
		fieldNames: fieldNames,
	}, nil
}

func (aw *avroWriter) WriteBatch(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := checkArity(rows, len(aw.fieldNames)); err != nil {
		return err
	}

	aw.mu.Lock()
	defer aw.mu.Unlock()

	// one OCF block per batch
	natives := make([]interface{}, len(rows))
	for i, row := range rows {
		native := make(map[string]interface{}, len(row))
		for c, value := range row {
			native[aw.fieldNames[c]] = value
		}
		natives[i] = native
	}

	if err := aw.ocfWriter.Append(natives); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write Avro block")
	}

	aw.rowsWritten += int64(len(rows))
	return nil
}

// Close is a no-op: every Append already wrote a complete block
func (aw *avroWriter) Close() error {
	return nil
}

func (aw *avroWriter) Format() Format {
	return Avro
}

func (aw *avroWriter) BytesWritten() int64 {
	return aw.out.n
}

func (aw *avroWriter) RowsWritten() int64 {
	return aw.rowsWritten
}

// avroReader implements Reader for the Avro object container format
type avroReader struct {
	ocfReader  *goavro.OCFReader
	columns    []string
	fieldNames []string
}

func newAvroReader(r ReadAtSeeker, _ *ReaderConfig) (*avroReader, error) {
	ocfReader, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to open Avro file")
	}

	var schema avroSchema
	if err := json.Unmarshal([]byte(ocfReader.Codec().Schema()), &schema); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to parse Avro schema")
	}

	ar := &avroReader{ocfReader: ocfReader}
	for _, field := range schema.Fields {
		column := field.Doc
		if column == "" {
			column = field.Name
		}
		ar.columns = append(ar.columns, column)
		ar.fieldNames = append(ar.fieldNames, field.Name)
	}
	return ar, nil
}

func (ar *avroReader) Columns() []string {
	return ar.columns
}

func (ar *avroReader) Next() ([]string, error) {
	if !ar.ocfReader.Scan() {
		if err := ar.ocfReader.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read Avro block")
		}
		return nil, io.EOF
	}

	datum, err := ar.ocfReader.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to decode Avro record")
	}

	record, ok := datum.(map[string]interface{})
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeMalformedInput, "unexpected Avro datum %T", datum)
	}

	row := make([]string, len(ar.fieldNames))
	for i, name := range ar.fieldNames {
		row[i], _ = record[name].(string)
	}
	return row, nil
}

func (ar *avroReader) NumRows() int64 {
	return -1
}

func (ar *avroReader) Format() Format {
	return Avro
}

func (ar *avroReader) Close() error {
	return nil
}

// columnsToAvroSchema builds a record schema of string fields. Names that are
// not valid Avro identifiers are rewritten; the column name is kept in "doc".
func columnsToAvroSchema(columns []string) (avroSchema, []string) {
	taken := make(map[string]bool, len(columns))
	schema := avroSchema{Type: "record", Name: avroRecordName}
	names := make([]string, len(columns))

	for i, column := range columns {
		names[i] = avroName(column, taken)
		schema.Fields = append(schema.Fields, avroField{Name: names[i], Type: "string", Doc: column})
	}
	return schema, names
}

func avroCompression(name string) (string, error) {
	switch name {
	case "", "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "gzip":
		// deflate is the Avro container's zlib-family codec
		return goavro.CompressionDeflateLabel, nil
	case "none":
		return goavro.CompressionNullLabel, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig,
			"compression %q is not supported by format %q", name, Avro)
	}
}
