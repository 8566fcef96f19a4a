// Package profiling captures pprof profiles and execution traces around a
// conversion run.
package profiling

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// ProfileConfig names the files to write; empty paths are skipped
type ProfileConfig struct {
	// CPUFile receives a CPU profile covering Start to Stop
	CPUFile string
	// MemFile receives a heap profile taken at Stop
	MemFile string
	// TraceFile receives a runtime execution trace
	TraceFile string
	// MemProfileRate overrides runtime.MemProfileRate when positive
	MemProfileRate int
}

// Enabled reports whether any profile was requested
func (c ProfileConfig) Enabled() bool {
	return c.CPUFile != "" || c.MemFile != "" || c.TraceFile != ""
}

// Profiler owns the open profile outputs of one run
type Profiler struct {
	config    ProfileConfig
	logger    *zap.Logger
	cpuFile   *os.File
	traceFile *os.File
}

// NewProfiler creates a profiler; nothing is captured until Start
func NewProfiler(config ProfileConfig, logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{config: config, logger: logger}
}

// Start begins CPU profiling and tracing as configured
func (p *Profiler) Start() error {
	if p.config.MemProfileRate > 0 {
		runtime.MemProfileRate = p.config.MemProfileRate
	}

	if p.config.CPUFile != "" {
		f, err := create(p.config.CPUFile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start CPU profile")
		}
		p.cpuFile = f
	}

	if p.config.TraceFile != "" {
		f, err := create(p.config.TraceFile)
		if err != nil {
			p.stopCPU()
			return err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			p.stopCPU()
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to start execution trace")
		}
		p.traceFile = f
	}

	p.logger.Debug("profiling started",
		zap.String("cpu", p.config.CPUFile),
		zap.String("mem", p.config.MemFile),
		zap.String("trace", p.config.TraceFile))
	return nil
}

// Stop ends CPU profiling and tracing and writes the heap profile
func (p *Profiler) Stop() error {
	p.stopCPU()

	if p.traceFile != nil {
		trace.Stop()
		_ = p.traceFile.Close()
		p.logger.Info("trace saved", zap.String("file", p.traceFile.Name()))
		p.traceFile = nil
	}

	if p.config.MemFile == "" {
		return nil
	}
	f, err := create(p.config.MemFile)
	if err != nil {
		return err
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write heap profile").
			WithDetail("path", p.config.MemFile)
	}
	p.logger.Info("memory profile saved", zap.String("file", p.config.MemFile))
	return nil
}

func (p *Profiler) stopCPU() {
	if p.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = p.cpuFile.Close()
	p.logger.Info("CPU profile saved", zap.String("file", p.cpuFile.Name()))
	p.cpuFile = nil
}

func create(path string) (*os.File, error) {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create profile file").
			WithDetail("path", path)
	}
	return f, nil
}
