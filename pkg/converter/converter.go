// Package converter drives one VCF conversion from input validation to the
// two finished artifacts: a columnar table of the body rows and a JSON
// sidecar holding the metadata preamble.
//
// A run moves through a fixed set of states:
//
//	idle -> validating_input -> streaming_conversion -> finalizing -> succeeded
//	                  \________________\____________________\______-> failed
//
// Outputs are written to temporary files beside their destinations and
// renamed into place only when the whole run succeeded, so a failed run
// leaves no new artifact behind.
package converter

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/internal/pipeline"
	"github.com/ajitpratap0/vcf2parquet/pkg/config"
	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/formats/columnar"
	"github.com/ajitpratap0/vcf2parquet/pkg/json"
	"github.com/ajitpratap0/vcf2parquet/pkg/logger"
	"github.com/ajitpratap0/vcf2parquet/pkg/metrics"
	"github.com/ajitpratap0/vcf2parquet/pkg/observability"
	"github.com/ajitpratap0/vcf2parquet/pkg/publish"
	"github.com/ajitpratap0/vcf2parquet/pkg/vcf"
)

// MetadataSuffix is appended to the output stem for the sidecar
const MetadataSuffix = ".metadata.json"

// Result describes a finished (or failed) conversion
type Result struct {
	RunID        string
	InputPath    string
	ColumnarPath string
	MetadataPath string
	Format       columnar.Format
	Columns      []string
	RowCount     int64
	Batches      int64
	// MetadataKeys is the number of distinct preamble keys
	MetadataKeys    int
	MetadataEntries int
	InputBytes      int64
	ColumnarBytes   int64
	MetadataBytes   int64
	Duration        time.Duration
	Status          State
	// FailureKind is set when Status is StateFailed
	FailureKind errors.ErrorType
	Published   []string
}

// Transition is reported to a StateHook on every state change
type Transition struct {
	RunID string
	From  State
	To    State
	At    time.Time
}

// StateHook observes state transitions
type StateHook func(Transition)

// Converter runs conversions with a fixed configuration. A Converter runs
// one conversion at a time; State reports the phase of the current or last
// run.
type Converter struct {
	config    *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	publisher publish.Publisher
	hooks     []StateHook

	runMu   sync.Mutex
	mu      sync.Mutex
	state   State
	failure errors.ErrorType
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the converter's logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// WithCollector records run metrics into collector
func WithCollector(collector *metrics.Collector) Option {
	return func(c *Converter) {
		c.collector = collector
	}
}

// WithPublisher uploads both artifacts after a successful conversion
func WithPublisher(p publish.Publisher) Option {
	return func(c *Converter) {
		c.publisher = p
	}
}

// WithStateHook registers a transition observer
func WithStateHook(h StateHook) Option {
	return func(c *Converter) {
		c.hooks = append(c.hooks, h)
	}
}

// New creates a converter. cfg is validated and must not change afterwards.
func New(cfg *config.Config, opts ...Option) (*Converter, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Converter{
		config: cfg,
		logger: zap.NewNop(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.collector == nil {
		c.collector = metrics.NewCollector(cfg.Format)
	}
	return c, nil
}

// State returns the phase of the current or most recent run
func (c *Converter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Failure returns the error kind of the last failed run
func (c *Converter) Failure() errors.ErrorType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Collector returns the metrics collector of this converter
func (c *Converter) Collector() *metrics.Collector {
	return c.collector
}

func (c *Converter) transition(runID string, log *zap.Logger, to State) {
	c.mu.Lock()
	from := c.state
	if from.Terminal() && to == StateValidatingInput {
		from = StateIdle
	}
	if !canTransition(from, to) {
		c.mu.Unlock()
		log.Error("illegal state transition", zap.Stringer("from", from), zap.Stringer("to", to))
		return
	}
	c.state = to
	c.mu.Unlock()

	log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	t := Transition{RunID: runID, From: from, To: to, At: time.Now()}
	for _, h := range c.hooks {
		h(t)
	}
}

// run carries the per-conversion state shared by the phases
type run struct {
	id       string
	log      *zap.Logger
	result   *Result
	document *vcf.Document
	data     *pendingFile
	meta     *pendingFile
}

// Convert converts input into <stem><ext> and <stem>.metadata.json. The
// returned Result is non-nil even on failure and carries the failure kind.
func (c *Converter) Convert(ctx context.Context, input, stem string) (*Result, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	start := time.Now()
	r := &run{id: uuid.NewString()}
	ctx = context.WithValue(ctx, logger.RunIDKey, r.id)
	ctx = context.WithValue(ctx, logger.InputKey, input)
	r.log = logger.FromContext(ctx, c.logger)

	info := columnar.GetFormatInfo(columnar.Format(c.config.Format))
	columnarPath, metadataPath := outputPaths(stem, info.FileExtension)
	r.result = &Result{
		RunID:        r.id,
		InputPath:    input,
		ColumnarPath: columnarPath,
		MetadataPath: metadataPath,
		Format:       info.Format,
	}

	ctx, span := observability.StartSpan(ctx, "vcf2parquet.convert")
	span.SetAttribute("run_id", r.id)
	span.SetAttribute("input", input)
	span.SetAttribute("format", c.config.Format)

	err := c.convert(ctx, r, input, stem)
	r.result.Duration = time.Since(start)

	if err != nil {
		r.discard()
		kind := errors.TypeOf(err)
		c.mu.Lock()
		c.failure = kind
		c.mu.Unlock()
		c.transition(r.id, r.log, StateFailed)

		r.result.Status = StateFailed
		r.result.FailureKind = kind
		span.Fail(err)
		r.log.Error("conversion failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
			zap.Duration("duration", r.result.Duration))
	} else {
		c.transition(r.id, r.log, StateSucceeded)
		r.result.Status = StateSucceeded
		r.log.Info("conversion succeeded",
			zap.String("columnar", r.result.ColumnarPath),
			zap.String("metadata", r.result.MetadataPath),
			zap.Int64("rows", r.result.RowCount),
			zap.Int64("batches", r.result.Batches),
			zap.Duration("duration", r.result.Duration))
	}

	span.SetAttribute("rows", r.result.RowCount)
	span.SetAttribute("status", r.result.Status.String())
	span.End()

	c.finishMetrics(r.log, r.result)
	return r.result, err
}

func (c *Converter) convert(ctx context.Context, r *run, input, stem string) error {
	c.transition(r.id, r.log, StateValidatingInput)
	info, err := validateInput(input)
	if err != nil {
		return err
	}
	if err := validateStem(stem); err != nil {
		return err
	}
	r.result.InputBytes = info.Size()
	c.collector.ObserveBytes("input", info.Size())

	c.transition(r.id, r.log, StateStreamingConversion)
	if err := observability.TraceStage(ctx, "vcf2parquet.stream", func(ctx context.Context) error {
		return c.stream(ctx, r, input)
	}); err != nil {
		return err
	}

	c.transition(r.id, r.log, StateFinalizing)
	return observability.TraceStage(ctx, "vcf2parquet.finalize", func(ctx context.Context) error {
		return c.finalize(ctx, r)
	})
}

// stream resolves the preamble and appends every body row to the columnar
// artifact
func (c *Converter) stream(ctx context.Context, r *run, input string) error {
	policy, err := vcf.ParseSeparatorPolicy(c.config.MissingSeparatorPolicy)
	if err != nil {
		return err
	}

	src, err := vcf.Open(input)
	if err != nil {
		return err
	}
	defer src.Close()

	reader := vcf.NewReader(src,
		vcf.WithSeparatorPolicy(policy),
		vcf.WithMaxLines(c.config.MaxLines),
		vcf.WithLogger(r.log))

	doc, header, err := reader.ReadPreamble()
	if err != nil {
		return err
	}
	r.document = doc
	r.result.Columns = header.Columns
	r.result.MetadataKeys = doc.Len()
	r.result.MetadataEntries = doc.EntryCount()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCanceled, "conversion canceled")
	}

	r.data, err = createPending(r.result.ColumnarPath, r.id)
	if err != nil {
		return err
	}

	writer, err := columnar.NewWriter(r.data.file, &columnar.WriterConfig{
		Format:       r.result.Format,
		Columns:      header.Columns,
		Compression:  c.config.EffectiveCompression(),
		RowGroupRows: c.config.RowGroupRows,
	})
	if err != nil {
		return err
	}

	p := pipeline.NewSimplePipeline(reader, writer, &pipeline.PipelineConfig{
		BatchSize:        c.config.ChunkSize,
		QueueDepth:       c.config.QueueDepth,
		ProgressInterval: c.config.ProgressInterval,
	}, r.log, pipeline.WithRecorder(c.collector))

	stats, err := p.Run(ctx)
	if err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := r.data.close(); err != nil {
		return err
	}

	r.result.RowCount = stats.Rows
	r.result.Batches = stats.Batches
	r.result.ColumnarBytes = writer.BytesWritten()

	if c.config.MaxLines > 0 && reader.LineNumber() >= c.config.MaxLines {
		r.log.Warn("input truncated by max_lines", zap.Int("max_lines", c.config.MaxLines))
	}
	return nil
}

// finalize writes the sidecar, moves both artifacts into place and
// publishes them when a publisher is configured
func (c *Converter) finalize(ctx context.Context, r *run) error {
	var err error
	r.meta, err = createPending(r.result.MetadataPath, r.id)
	if err != nil {
		return err
	}
	if err := json.EncodeIndented(r.meta.file, r.document); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write metadata sidecar").
			WithDetail("path", r.meta.tmp)
	}

	if err := r.data.commit(); err != nil {
		return err
	}
	if err := r.meta.commit(); err != nil {
		// the sidecar is missing, so the committed table is not a result
		_ = os.Remove(r.result.ColumnarPath)
		return err
	}
	r.result.MetadataBytes = fileSize(r.result.MetadataPath)

	if c.publisher == nil {
		return nil
	}
	uris, err := publish.PublishAll(ctx, c.publisher,
		publish.Artifact{Path: r.result.ColumnarPath, ContentType: columnar.GetFormatInfo(r.result.Format).MIMEType},
		publish.Artifact{Path: r.result.MetadataPath, ContentType: "application/json"})
	r.result.Published = uris
	if err != nil {
		r.log.Warn("local artifacts kept after publish failure",
			zap.String("columnar", filepath.Base(r.result.ColumnarPath)))
		return err
	}
	return nil
}

func (r *run) discard() {
	if r.data != nil {
		r.data.discard()
	}
	if r.meta != nil {
		r.meta.discard()
	}
}

func (c *Converter) finishMetrics(log *zap.Logger, result *Result) {
	c.collector.ObserveBytes("columnar", result.ColumnarBytes)
	c.collector.ObserveBytes("metadata", result.MetadataBytes)
	c.collector.ObserveMetadata(result.MetadataEntries)

	status := result.Status.String()
	if result.Status == StateFailed {
		status += "_" + string(result.FailureKind)
	}
	c.collector.Finish(status, result.Duration)

	if path := c.config.Observability.MetricsFile; path != "" {
		if err := c.collector.WriteTextfile(path); err != nil {
			log.Warn("metrics textfile not written", zap.Error(err))
		}
	}
}
