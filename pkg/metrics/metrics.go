// Package metrics provides Prometheus instrumentation for conversion runs.
// Each run owns a Collector with its own registry so that one-shot CLI runs
// can dump their final values to a node_exporter textfile.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("parquet")
//	collector.RowsRead(1)
//	collector.BatchWritten(500, elapsed)
//	collector.Finish("succeeded", time.Since(start))
//	_ = collector.WriteTextfile("/var/lib/node_exporter/vcf2parquet.prom")
//
// # Metric Types
//
// Counter: rows read and written, batches appended, finished runs by status
// Gauge: input and output sizes, run duration, peak resident memory
// Histogram: per-batch append latency
package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const namespace = "vcf2parquet"

// resourceSampleInterval is the number of batches between RSS samples
const resourceSampleInterval = 16

// Collector records the metrics of one conversion run. It is safe for
// concurrent use by the reader and writer stages.
type Collector struct {
	registry *prometheus.Registry

	rowsRead      prometheus.Counter
	rowsWritten   prometheus.Counter
	batches       prometheus.Counter
	batchLatency  prometheus.Histogram
	bytes         *prometheus.GaugeVec
	duration      prometheus.Gauge
	peakRSS       prometheus.Gauge
	conversions   *prometheus.CounterVec
	metadataItems prometheus.Gauge

	proc      *process.Process
	mu        sync.Mutex
	batchSeen int
	peak      uint64
	startTime time.Time
}

// NewCollector creates a collector whose metrics carry a constant "format" label
func NewCollector(format string) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"format": format}

	c := &Collector{
		registry: registry,
		rowsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_read_total",
			Help:        "Body rows read and validated from the input",
			ConstLabels: labels,
		}),
		rowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_written_total",
			Help:        "Rows appended to the columnar artifact",
			ConstLabels: labels,
		}),
		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "batches_written_total",
			Help:        "Batches appended to the columnar artifact",
			ConstLabels: labels,
		}),
		batchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "batch_write_duration_seconds",
			Help:        "Time spent appending one batch",
			ConstLabels: labels,
			Buckets: []float64{
				0.0001, // 100μs - small batches
				0.001,  // 1ms
				0.01,   // 10ms - default chunk size
				0.1,    // 100ms
				1,      // 1s - very large batches
				10,
			},
		}),
		bytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "artifact_bytes",
			Help:        "Size of the input and of each produced artifact",
			ConstLabels: labels,
		}, []string{"artifact"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "conversion_duration_seconds",
			Help:        "Wall time of the last conversion",
			ConstLabels: labels,
		}),
		peakRSS: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "peak_resident_memory_bytes",
			Help:        "Highest sampled resident set size during the conversion",
			ConstLabels: labels,
		}),
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "conversions_total",
			Help:        "Finished conversions by final status",
			ConstLabels: labels,
		}, []string{"status"}),
		metadataItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "metadata_entries",
			Help:        "Metadata values recorded in the sidecar",
			ConstLabels: labels,
		}),
		startTime: time.Now(),
	}

	// sampling is best effort; a nil process disables it
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // G115: pid fits in int32
		c.proc = proc
	}
	return c
}

// Registry returns the collector's private registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RowsRead counts rows accepted by the reader stage
func (c *Collector) RowsRead(n int) {
	c.rowsRead.Add(float64(n))
}

// BatchWritten records one appended batch and periodically samples memory
func (c *Collector) BatchWritten(rows int, elapsed time.Duration) {
	c.rowsWritten.Add(float64(rows))
	c.batches.Inc()
	c.batchLatency.Observe(elapsed.Seconds())

	c.mu.Lock()
	c.batchSeen++
	sample := c.batchSeen%resourceSampleInterval == 1
	c.mu.Unlock()

	if sample {
		c.SampleResources()
	}
}

// ObserveBytes sets the size of an artifact ("input", "columnar", "metadata")
func (c *Collector) ObserveBytes(artifact string, n int64) {
	c.bytes.WithLabelValues(artifact).Set(float64(n))
}

// ObserveMetadata records the number of metadata values
func (c *Collector) ObserveMetadata(entries int) {
	c.metadataItems.Set(float64(entries))
}

// SampleResources records the current RSS if it is a new peak
func (c *Collector) SampleResources() {
	if c.proc == nil {
		return
	}
	info, err := c.proc.MemoryInfo()
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if info.RSS > c.peak {
		c.peak = info.RSS
		c.peakRSS.Set(float64(info.RSS))
	}
}

// PeakRSS returns the highest sampled resident set size
func (c *Collector) PeakRSS() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// Finish records the final status and duration of the run
func (c *Collector) Finish(status string, elapsed time.Duration) {
	c.SampleResources()
	c.duration.Set(elapsed.Seconds())
	c.conversions.WithLabelValues(status).Inc()
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// WriteTextfile writes the registry in the Prometheus text format. The file
// is written atomically so a scraping node_exporter never sees a partial one.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write metrics textfile").
			WithDetail("path", path)
	}
	return nil
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's label
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
