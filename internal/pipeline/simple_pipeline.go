// Package pipeline streams validated rows from a reader stage to a writer
// stage in fixed-size batches.
//
// # Architecture
//
// A run consists of two goroutines joined by a bounded channel:
//   - Reader: pulls rows from the RowSource and groups them into batches
//   - Writer: appends each batch to the BatchSink, strictly in input order
//
// Both stages share an errgroup context, so the first failure on either
// side stops the other. The caller's context is checked between batches;
// a batch is either appended completely or not at all.
//
// # Basic Usage
//
//	p := pipeline.NewSimplePipeline(reader, writer, &pipeline.PipelineConfig{
//	    BatchSize:  500,
//	    QueueDepth: 2,
//	}, logger)
//
//	stats, err := p.Run(ctx)
//
// Memory use is bounded by (QueueDepth + 2) batches of BatchSize rows.
package pipeline

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
	"github.com/ajitpratap0/vcf2parquet/pkg/pool"
	"github.com/ajitpratap0/vcf2parquet/pkg/vcf"
)

// RowSource yields validated body rows and io.EOF after the last one
type RowSource interface {
	Next() (vcf.Row, error)
}

// BatchSink receives batches in order. The batch is recycled once
// WriteBatch returns, so a sink must copy anything it keeps.
type BatchSink interface {
	WriteBatch(rows [][]string) error
}

// Recorder observes pipeline activity. pkg/metrics.Collector implements it.
type Recorder interface {
	RowsRead(n int)
	BatchWritten(rows int, elapsed time.Duration)
}

// PipelineConfig contains pipeline configuration parameters that control
// resource usage. None of them affect the produced artifact.
type PipelineConfig struct {
	BatchSize        int // Rows per batch handed to the sink
	QueueDepth       int // Batches buffered between reader and writer
	ProgressInterval int // Log progress every N input lines (0 disables)
}

// DefaultPipelineConfig returns the default configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		BatchSize:        500,
		QueueDepth:       2,
		ProgressInterval: 100000,
	}
}

// Stats summarizes a completed run
type Stats struct {
	Rows     int64
	Batches  int64
	Duration time.Duration
}

// SimplePipeline moves rows from one source to one sink
type SimplePipeline struct {
	source   RowSource
	sink     BatchSink
	config   PipelineConfig
	recorder Recorder
	batches  *pool.BatchPool
	logger   *zap.Logger
}

// Option configures a SimplePipeline
type Option func(*SimplePipeline)

// WithRecorder reports rows and batches to r
func WithRecorder(r Recorder) Option {
	return func(p *SimplePipeline) {
		p.recorder = r
	}
}

// NewSimplePipeline creates a pipeline. The pipeline is initialized but not
// started; call Run to begin processing.
func NewSimplePipeline(source RowSource, sink BatchSink, config *PipelineConfig, logger *zap.Logger, opts ...Option) *SimplePipeline {
	if config == nil {
		config = DefaultPipelineConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &SimplePipeline{
		source:   source,
		sink:     sink,
		config:   *config,
		recorder: nopRecorder{},
		logger:   logger,
	}
	if p.config.BatchSize <= 0 {
		p.config.BatchSize = DefaultPipelineConfig().BatchSize
	}
	if p.config.QueueDepth <= 0 {
		p.config.QueueDepth = DefaultPipelineConfig().QueueDepth
	}
	for _, opt := range opts {
		opt(p)
	}
	p.batches = pool.NewBatchPool(p.config.BatchSize)
	return p
}

// Run streams every remaining row of the source into the sink. It blocks
// until the source is exhausted, either stage fails, or ctx is canceled.
func (p *SimplePipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	p.logger.Debug("starting pipeline",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("queue_depth", p.config.QueueDepth))

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan [][]string, p.config.QueueDepth)

	var stats Stats
	g.Go(func() error {
		defer close(batches)
		return p.readRows(gctx, batches)
	})
	g.Go(func() error {
		return p.writeBatches(gctx, batches, &stats)
	})

	err := g.Wait()
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	p.logger.Debug("pipeline completed",
		zap.Int64("rows", stats.Rows),
		zap.Int64("batches", stats.Batches),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// readRows groups source rows into batches and always flushes the partial
// final batch
func (p *SimplePipeline) readRows(ctx context.Context, out chan<- [][]string) error {
	size := p.config.BatchSize
	batch := p.batches.Get()
	var rows int64

	send := func() error {
		select {
		case out <- batch:
			batch = p.batches.Get()
			return nil
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeCanceled, "conversion canceled")
		}
	}

	for {
		if len(batch) == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, errors.ErrorTypeCanceled, "conversion canceled")
			}
		}

		row, err := p.source.Next()
		if err == io.EOF {
			if len(batch) > 0 {
				return send()
			}
			return nil
		}
		if err != nil {
			return err
		}

		batch = append(batch, row.Fields)
		rows++
		p.recorder.RowsRead(1)

		if p.config.ProgressInterval > 0 && row.Line%p.config.ProgressInterval == 0 {
			p.logger.Info("conversion progress",
				zap.Int("line", row.Line),
				zap.Int64("rows", rows))
		}

		if len(batch) >= size {
			if err := send(); err != nil {
				return err
			}
		}
	}
}

// writeBatches appends batches in arrival order, which is input order
func (p *SimplePipeline) writeBatches(ctx context.Context, in <-chan [][]string, stats *Stats) error {
	for batch := range in {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeCanceled, "conversion canceled")
		}

		start := time.Now()
		if err := p.sink.WriteBatch(batch); err != nil {
			return err
		}
		elapsed := time.Since(start)
		n := len(batch)
		p.batches.Put(batch)

		stats.Rows += int64(n)
		stats.Batches++
		p.recorder.BatchWritten(n, elapsed)

		p.logger.Debug("batch written",
			zap.Int64("batch", stats.Batches),
			zap.Int("rows", n),
			zap.Duration("elapsed", elapsed))
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) RowsRead(int) {}
func (nopRecorder) BatchWritten(int, time.Duration) {}
