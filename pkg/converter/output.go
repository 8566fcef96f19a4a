package converter

import (
	"os"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// pendingFile is an output written under a temporary name next to its
// destination and renamed into place on commit
type pendingFile struct {
	final  string
	tmp    string
	file   *os.File
	closed bool
}

func createPending(final, runID string) (*pendingFile, error) {
	tmp := final + ".tmp-" + runID
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // G304,G302: artifact path chosen by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create output file").
			WithDetail("path", tmp)
	}
	return &pendingFile{final: final, tmp: tmp, file: f}, nil
}

// close flushes the file to disk
func (p *pendingFile) close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.file.Sync()
	if cerr := p.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to flush output file").
			WithDetail("path", p.tmp)
	}
	return nil
}

// commit moves the finished file to its final name
func (p *pendingFile) commit() error {
	if err := p.close(); err != nil {
		return err
	}
	if err := os.Rename(p.tmp, p.final); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to move output into place").
			WithDetail("path", p.final)
	}
	return nil
}

// discard removes the temporary file; safe after commit
func (p *pendingFile) discard() {
	if !p.closed {
		p.closed = true
		_ = p.file.Close()
	}
	_ = os.Remove(p.tmp)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
