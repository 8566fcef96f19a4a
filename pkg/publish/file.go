package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// filePublisher copies artifacts into a directory
type filePublisher struct {
	dir    string
	logger *zap.Logger
}

func newFilePublisher(dest Destination, opts Options) (*filePublisher, error) {
	dir := filepath.FromSlash(dest.Prefix)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create publish directory").
			WithDetail("dir", dir)
	}
	return &filePublisher{dir: dir, logger: opts.Logger}, nil
}

func (p *filePublisher) Publish(ctx context.Context, artifact Artifact, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeCanceled, "publish canceled")
	}

	src, err := os.Open(artifact.Path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to open artifact").WithDetail("path", artifact.Path)
	}
	defer src.Close()

	target := filepath.Join(p.dir, name)
	tmp := target + ".tmp-" + uuid.NewString()
	dst, err := os.Create(tmp) //nolint:gosec // G304: directory comes from configuration
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to create published file").WithDetail("path", tmp)
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, target)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to publish artifact").WithDetail("path", target)
	}

	uri := "file://" + filepath.ToSlash(target)
	p.logger.Info("artifact published", zap.String("uri", uri), zap.Int64("bytes", n))
	return uri, nil
}

func (p *filePublisher) Close() error {
	return nil
}
