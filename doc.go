// Package vcf2parquet converts Variant Call Format (VCF) files into a
// columnar table plus a JSON metadata sidecar.
//
// A VCF file has three regions: a "##KEY=VALUE" metadata preamble, one
// "#CHROM ..." header line naming the columns, and tab-separated body rows.
// vcf2parquet streams the body into Parquet (or Arrow IPC / Avro OCF) in
// fixed-size batches, so memory use is bounded by the batch size rather than
// the input size, and folds the preamble into an ordered multimap written as
// <stem>.metadata.json.
//
// # Architecture
//
//	LineSource ──► vcf.Reader ──► pipeline (reader ║ writer) ──► columnar.Writer
//	(plain/gzip)   (preamble,      bounded channel of           (parquet, arrow,
//	               header, rows)   batches, errgroup            avro)
//	                    │
//	                    └──► vcf.Document ──► <stem>.metadata.json
//
// The converter package drives one run through the states
// idle, validating_input, streaming_conversion, finalizing and a terminal
// succeeded or failed. Outputs are written under temporary names and renamed
// into place only when the whole run succeeds.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/vcf2parquet/pkg/config"
//	    "github.com/ajitpratap0/vcf2parquet/pkg/converter"
//	)
//
//	cfg := config.DefaultConfig()
//	cfg.ChunkSize = 5000
//
//	conv, err := converter.New(cfg)
//	if err != nil {
//	    return err
//	}
//	result, err := conv.Convert(context.Background(), "sample.vcf.gz", "out/sample")
//	// result.ColumnarPath == "out/sample.parquet"
//	// result.MetadataPath == "out/sample.metadata.json"
//
// # Command Line
//
//	vcf2parquet convert sample.vcf.gz out/sample --chunk-size 5000
//	vcf2parquet convert sample.vcf out/sample --format avro --publish s3://bucket/vcf
//	vcf2parquet inspect out/sample.parquet --rows 5
//
// Failures exit with a code per error kind: 2 for invalid input or
// configuration, 3 for malformed input, 4 for a schema violation, 5 for I/O
// errors, 130 when interrupted and 1 otherwise.
//
// # Packages
//
//   - pkg/vcf: line source, line classification, metadata accumulator, header resolver
//   - pkg/formats/columnar: Parquet, Arrow IPC and Avro writers and readers
//   - internal/pipeline: batching reader/writer stages
//   - pkg/converter: orchestration, validation, atomic outputs
//   - pkg/config, pkg/logger, pkg/errors, pkg/metrics, pkg/observability: ambient stack
//   - pkg/publish: optional upload of both artifacts to S3, GCS or a directory
package vcf2parquet
