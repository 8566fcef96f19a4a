package columnar

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// stringSchema builds an Arrow schema of non-nullable string columns
func stringSchema(columns []string) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: false}
	}
	return arrow.NewSchema(fields, nil)
}

func schemaColumns(schema *arrow.Schema) []string {
	columns := make([]string, schema.NumFields())
	for i := range columns {
		columns[i] = schema.Field(i).Name
	}
	return columns
}

// buildRecord transposes rows into one Arrow record. The caller releases it.
func buildRecord(builder *array.RecordBuilder, rows [][]string) arrow.Record {
	for col := 0; col < builder.Schema().NumFields(); col++ {
		b := builder.Field(col).(*array.StringBuilder)
		b.Reserve(len(rows))
		for _, row := range rows {
			b.Append(row[col])
		}
	}
	return builder.NewRecord()
}

// rowAt copies row i out of rec so it outlives the record's buffers
func rowAt(rec arrow.Record, i int) []string {
	row := make([]string, rec.NumCols())
	for c := range row {
		row[c] = columnValue(rec.Column(c), i)
	}
	return row
}

func columnValue(col arrow.Array, i int) string {
	switch c := col.(type) {
	case *array.String:
		return strings.Clone(c.Value(i))
	case *array.LargeString:
		return strings.Clone(c.Value(i))
	case *array.Binary:
		return string(c.Value(i))
	default:
		return col.ValueStr(i)
	}
}

// avroName turns a column name into a valid Avro field name:
// [A-Za-z_][A-Za-z0-9_]*, made unique against taken.
func avroName(column string, taken map[string]bool) string {
	var b strings.Builder
	for i, r := range column {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "_"
	}

	sep := "_"
	if strings.HasSuffix(name, "_") {
		sep = ""
	}
	candidate := name
	for n := 2; taken[candidate]; n++ {
		candidate = name + sep + strconv.Itoa(n)
	}
	taken[candidate] = true
	return candidate
}
