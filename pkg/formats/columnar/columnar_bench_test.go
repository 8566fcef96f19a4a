package columnar

import (
	"bytes"
	"fmt"
	"testing"
)

func BenchmarkColumnarWrite(b *testing.B) {
	formats := []Format{Parquet, Arrow, Avro}
	batchSizes := []int{500, 10000}
	rows := testRows(100000)

	for _, format := range formats {
		for _, batchSize := range batchSizes {
			b.Run(fmt.Sprintf("%s/%d", format, batchSize), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					var buf bytes.Buffer
					writer, err := NewWriter(&buf, &WriterConfig{Format: format, Columns: testColumns})
					if err != nil {
						b.Fatal(err)
					}
					for start := 0; start < len(rows); start += batchSize {
						end := min(start+batchSize, len(rows))
						if err := writer.WriteBatch(rows[start:end]); err != nil {
							b.Fatal(err)
						}
					}
					if err := writer.Close(); err != nil {
						b.Fatal(err)
					}
					b.SetBytes(int64(buf.Len()))
				}
			})
		}
	}
}

func BenchmarkColumnarRead(b *testing.B) {
	rows := testRows(10000)

	for _, format := range []Format{Parquet, Arrow, Avro} {
		var buf bytes.Buffer
		writer, err := NewWriter(&buf, &WriterConfig{Format: format, Columns: testColumns})
		if err != nil {
			b.Fatal(err)
		}
		if err := writer.WriteBatch(rows); err != nil {
			b.Fatal(err)
		}
		if err := writer.Close(); err != nil {
			b.Fatal(err)
		}
		data := buf.Bytes()

		b.Run(string(format), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				reader, err := NewReader(bytes.NewReader(data), &ReaderConfig{Format: format, BatchSize: 1000})
				if err != nil {
					b.Fatal(err)
				}
				got, err := ReadRows(reader, 0)
				if err != nil {
					b.Fatal(err)
				}
				if len(got) != len(rows) {
					b.Fatalf("expected %d rows, got %d", len(rows), len(got))
				}
				_ = reader.Close()
			}
		})
	}
}
