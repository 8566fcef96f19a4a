// Package config provides the configuration for a vcf2parquet conversion.
// A single Config structure carries every tunable of the engine and is
// organized into logical sections:
//   - Conversion: batch size, queue depth, output format and compression
//   - Parsing: metadata policies and debugging limits
//   - Log: level and encoding of the zap logger
//   - Observability: metrics textfile and trace export
//
// Example usage:
//
//	cfg := config.DefaultConfig()
//	cfg.ChunkSize = 5000
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const (
	// DefaultChunkSize is the number of body rows buffered before a batch is flushed
	DefaultChunkSize = 500
	// DefaultQueueDepth is the number of batches in flight between reader and writer
	DefaultQueueDepth = 2
	// DefaultProgressInterval is the number of lines between progress log entries
	DefaultProgressInterval = 100000
)

// Missing separator policies for metadata lines without '='.
const (
	PolicyError  = "error"
	PolicyRecord = "record"
)

// Config is the single configuration structure for a conversion run.
type Config struct {
	// ChunkSize controls the number of rows per batch handed to the columnar sink
	ChunkSize int `yaml:"chunk_size" json:"chunk_size" mapstructure:"chunk_size" validate:"gt=0"`
	// QueueDepth bounds the number of batches buffered between reader and writer
	QueueDepth int `yaml:"queue_depth" json:"queue_depth" mapstructure:"queue_depth" validate:"gt=0,lte=64"`
	// Format selects the columnar artifact format
	Format string `yaml:"format" json:"format" mapstructure:"format" validate:"oneof=parquet arrow avro"`
	// Compression selects the codec; empty means the format's default
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression" validate:"omitempty,oneof=snappy gzip zstd lz4 none"`
	// RowGroupRows groups batches into parquet row groups of at least this many rows (0 = one per batch)
	RowGroupRows int `yaml:"row_group_rows" json:"row_group_rows" mapstructure:"row_group_rows" validate:"gte=0"`

	// MissingSeparatorPolicy decides what happens to a metadata line without '='
	MissingSeparatorPolicy string `yaml:"missing_separator_policy" json:"missing_separator_policy" mapstructure:"missing_separator_policy" validate:"oneof=error record"`
	// ProgressInterval logs progress every N lines (0 disables)
	ProgressInterval int `yaml:"progress_interval" json:"progress_interval" mapstructure:"progress_interval" validate:"gte=0"`
	// MaxLines stops reading after N lines (0 = unlimited)
	MaxLines int `yaml:"max_lines" json:"max_lines" mapstructure:"max_lines" validate:"gte=0"`

	// Publish is an optional destination URI (s3://, gs://, file://) for both artifacts
	Publish string `yaml:"publish" json:"publish" mapstructure:"publish" validate:"omitempty,uri"`

	Log           LogConfig           `yaml:"log" json:"log" mapstructure:"log"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level    string `yaml:"level" json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding" validate:"oneof=auto json console"`
}

// ObservabilityConfig configures metrics and tracing exports
type ObservabilityConfig struct {
	// MetricsFile receives the Prometheus text exposition after the run
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" mapstructure:"metrics_file"`
	// Trace enables OpenTelemetry span export
	Trace bool `yaml:"trace" json:"trace" mapstructure:"trace"`
	// TraceFile receives exported spans (stderr when empty)
	TraceFile string `yaml:"trace_file" json:"trace_file" mapstructure:"trace_file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:              DefaultChunkSize,
		QueueDepth:             DefaultQueueDepth,
		Format:                 "parquet",
		MissingSeparatorPolicy: PolicyError,
		ProgressInterval:       DefaultProgressInterval,
		Log: LogConfig{
			Level:    "info",
			Encoding: "auto",
		},
	}
}

// supportedCompression lists the codecs each format can write
var supportedCompression = map[string][]string{
	"parquet": {"snappy", "gzip", "zstd", "lz4", "none"},
	"arrow":   {"zstd", "lz4", "none"},
	"avro":    {"snappy", "gzip", "none"},
}

var defaultCompression = map[string]string{
	"parquet": "snappy",
	"arrow":   "none",
	"avro":    "snappy",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and the format/compression combination
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Newf(errors.ErrorTypeConfig, "invalid %s: failed %q constraint",
				fieldName(fe.Namespace()), fe.Tag()).
				WithDetail("value", fe.Value())
		}
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	compression := c.EffectiveCompression()
	for _, supported := range supportedCompression[c.Format] {
		if supported == compression {
			return nil
		}
	}
	return errors.Newf(errors.ErrorTypeConfig, "compression %q is not supported by format %q", compression, c.Format)
}

// EffectiveCompression returns the configured codec or the format default
func (c *Config) EffectiveCompression() string {
	if c.Compression != "" {
		return c.Compression
	}
	return defaultCompression[c.Format]
}

// fieldName turns "Config.log.level" into "log.level"
func fieldName(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
