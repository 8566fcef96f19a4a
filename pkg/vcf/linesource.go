package vcf

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const readBufferSize = 256 * 1024

// LineSource produces decoded text lines from a byte stream, one at a time.
// It is forward-only: lines are never buffered beyond the current one.
type LineSource struct {
	reader  *bufio.Reader
	counter *countingReader
	closers []io.Closer
	line    int
	done    bool
}

// NewLineSource reads lines from an already decompressed stream
func NewLineSource(r io.Reader) *LineSource {
	counter := &countingReader{r: r}
	return &LineSource{
		reader:  bufio.NewReaderSize(counter, readBufferSize),
		counter: counter,
	}
}

// Open opens path as a line source. Gzip input (including multi-member bgzip)
// is detected from the ".gz" suffix or the gzip magic bytes.
func Open(path string) (*LineSource, error) {
	f, err := os.Open(path) //nolint:gosec // G304: input path is validated by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open input").
			WithDetail("path", path)
	}

	counter := &countingReader{r: f}
	raw := bufio.NewReaderSize(counter, readBufferSize)

	magic, _ := raw.Peek(2)
	isGzip := strings.HasSuffix(path, ".gz") || (len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b)
	if !isGzip {
		return &LineSource{reader: raw, counter: counter, closers: []io.Closer{f}}, nil
	}

	zr, err := gzip.NewReader(raw)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open gzip stream").
			WithDetail("path", path)
	}
	// bgzip files are a concatenation of gzip members
	zr.Multistream(true)

	return &LineSource{
		reader:  bufio.NewReaderSize(zr, readBufferSize),
		counter: counter,
		closers: []io.Closer{zr, f},
	}, nil
}

// Next returns the next line without its terminator, or io.EOF once the
// stream is exhausted. Read failures are reported as I/O errors.
func (s *LineSource) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to read input").
				WithDetail("line", s.line+1)
		}
		s.done = true
		if line == "" {
			return "", io.EOF
		}
	}

	s.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// LineNumber returns the 1-based number of the last line returned by Next
func (s *LineSource) LineNumber() int {
	return s.line
}

// BytesRead returns the number of raw (possibly compressed) bytes consumed
func (s *LineSource) BytesRead() int64 {
	return s.counter.n
}

// Close releases the decompressor and the underlying file
func (s *LineSource) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
