package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/pkg/config"
	"github.com/ajitpratap0/vcf2parquet/pkg/converter"
	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/logger"
	"github.com/ajitpratap0/vcf2parquet/pkg/observability"
	"github.com/ajitpratap0/vcf2parquet/pkg/profiling"
	"github.com/ajitpratap0/vcf2parquet/pkg/publish"
)

const envPrefix = "VCF2PARQUET"

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"chunk-size":               "chunk_size",
	"queue-depth":              "queue_depth",
	"format":                   "format",
	"compression":              "compression",
	"row-group-rows":           "row_group_rows",
	"missing-separator-policy": "missing_separator_policy",
	"progress-interval":        "progress_interval",
	"max-lines":                "max_lines",
	"publish":                  "publish",
	"log-level":                "log.level",
	"log-encoding":             "log.encoding",
	"metrics-file":             "observability.metrics_file",
	"trace":                    "observability.trace",
	"trace-file":               "observability.trace_file",
	"publish-region":           "publish_region",
	"publish-endpoint":         "publish_endpoint",
	"gcs-credentials":          "gcs_credentials",
	"cpu-profile":              "profile.cpu",
	"mem-profile":              "profile.mem",
	"exec-trace":               "profile.trace",
}

func newConvertCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "convert <input.vcf[.gz]> <output-stem>",
		Short: "Convert a VCF file to a columnar table and a metadata sidecar",
		Long: `Convert streams the body rows of a VCF file into <output-stem>.parquet (or .arrow/.avro)
and writes the ## metadata preamble to <output-stem>.metadata.json.

Settings are resolved from flags, then VCF2PARQUET_* environment variables
(e.g. VCF2PARQUET_CHUNK_SIZE, VCF2PARQUET_LOG_LEVEL), then the --config YAML file.

Example:
  vcf2parquet convert sample.vcf.gz out/sample --chunk-size 5000`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, v, configFile)
			if err != nil {
				return err
			}
			return runConvert(cmd, v, cfg, args[0], args[1])
		},
	}

	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	flags.Int("chunk-size", defaults.ChunkSize, "Rows per batch. Higher values improve throughput but increase memory usage")
	flags.Int("queue-depth", defaults.QueueDepth, "Batches buffered between the reader and the writer")
	flags.StringP("format", "f", defaults.Format, "Columnar format (parquet, arrow, avro)")
	flags.String("compression", "", "Compression codec (snappy, gzip, zstd, lz4, none); empty selects the format default")
	flags.Int("row-group-rows", 0, "Minimum rows per parquet row group (0 = one row group per batch)")
	flags.String("missing-separator-policy", defaults.MissingSeparatorPolicy, "Metadata lines without '=': error or record")
	flags.Int("progress-interval", defaults.ProgressInterval, "Log progress every N lines (0 disables)")
	flags.Int("max-lines", 0, "Stop after N input lines (0 = unlimited)")
	flags.String("publish", "", "Upload both artifacts to s3://bucket/prefix, gs://bucket/prefix or file:///dir")
	flags.String("publish-region", "", "AWS region for s3:// publishing")
	flags.String("publish-endpoint", "", "Endpoint of an S3-compatible service")
	flags.String("gcs-credentials", "", "Service account key file for gs:// publishing")
	flags.String("log-level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	flags.String("log-encoding", defaults.Log.Encoding, "Log encoding (auto, json, console)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	flags.Bool("trace", false, "Export OpenTelemetry spans")
	flags.String("trace-file", "", "File receiving exported spans (default stderr)")
	flags.String("cpu-profile", "", "Write a CPU profile to this file")
	flags.String("mem-profile", "", "Write a heap profile to this file after the run")
	flags.String("exec-trace", "", "Write a Go execution trace to this file")

	return cmd
}

// resolveConfig layers flags over VCF2PARQUET_* variables over the config
// file over the built-in defaults
func resolveConfig(cmd *cobra.Command, v *viper.Viper, configFile string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	for key, value := range settings(cfg) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to bind flag").WithDetail("flag", flag)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func settings(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"chunk_size":                 cfg.ChunkSize,
		"queue_depth":                cfg.QueueDepth,
		"format":                     cfg.Format,
		"compression":                cfg.Compression,
		"row_group_rows":             cfg.RowGroupRows,
		"missing_separator_policy":   cfg.MissingSeparatorPolicy,
		"progress_interval":          cfg.ProgressInterval,
		"max_lines":                  cfg.MaxLines,
		"publish":                    cfg.Publish,
		"log.level":                  cfg.Log.Level,
		"log.encoding":               cfg.Log.Encoding,
		"observability.metrics_file": cfg.Observability.MetricsFile,
		"observability.trace":        cfg.Observability.Trace,
		"observability.trace_file":   cfg.Observability.TraceFile,
		"publish_region":             "",
		"publish_endpoint":           "",
		"gcs_credentials":            "",
		"profile.cpu":                "",
		"profile.mem":                "",
		"profile.trace":              "",
	}
}

func runConvert(cmd *cobra.Command, v *viper.Viper, cfg *config.Config, input, stem string) error {
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	log := logger.Get().With(zap.String("component", "vcf2parquet-cli"))

	tracingCfg := observability.DefaultTracingConfig()
	tracingCfg.ServiceVersion = version
	tracingCfg.Enabled = cfg.Observability.Trace
	tracingCfg.Output = cfg.Observability.TraceFile
	tracing, err := observability.Initialize(tracingCfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	profiler := profiling.NewProfiler(profiling.ProfileConfig{
		CPUFile:   v.GetString("profile.cpu"),
		MemFile:   v.GetString("profile.mem"),
		TraceFile: v.GetString("profile.trace"),
	}, log)
	if err := profiler.Start(); err != nil {
		return err
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("failed to save profiles", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []converter.Option{converter.WithLogger(log)}
	if cfg.Publish != "" {
		p, err := publish.New(ctx, cfg.Publish, publish.Options{
			Region:          v.GetString("publish_region"),
			Endpoint:        v.GetString("publish_endpoint"),
			CredentialsFile: v.GetString("gcs_credentials"),
			Logger:          log,
		})
		if err != nil {
			return err
		}
		defer p.Close()
		opts = append(opts, converter.WithPublisher(p))
	}

	conv, err := converter.New(cfg, opts...)
	if err != nil {
		return err
	}

	log.Info("starting conversion",
		zap.String("input", input),
		zap.String("stem", stem),
		zap.String("format", cfg.Format),
		zap.Int("chunk_size", cfg.ChunkSize))

	result, err := conv.Convert(ctx, input, stem)
	if err != nil {
		return err
	}

	printResult(cmd, result)
	return nil
}

func printResult(cmd *cobra.Command, result *converter.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Data saved to %s\n", result.ColumnarPath)
	fmt.Fprintf(out, "Metadata saved to %s\n", result.MetadataPath)
	for _, uri := range result.Published {
		fmt.Fprintf(out, "Published %s\n", uri)
	}

	rate := 0.0
	if secs := result.Duration.Seconds(); secs > 0 {
		rate = float64(result.RowCount) / secs
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s rows in %s (%s rows/s): input %s, %s %s, metadata %s (%d keys)\n",
		humanize.Comma(result.RowCount),
		result.Duration.Round(time.Millisecond),
		humanize.CommafWithDigits(rate, 0),
		humanize.Bytes(uint64(result.InputBytes)),
		result.Format,
		humanize.Bytes(uint64(result.ColumnarBytes)),
		humanize.Bytes(uint64(result.MetadataBytes)),
		result.MetadataKeys)
}
