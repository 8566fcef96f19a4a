package publish

import (
	"context"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// gcsPublisher streams artifacts into a bucket
type gcsPublisher struct {
	dest   Destination
	client *storage.Client
	bucket *storage.BucketHandle
	logger *zap.Logger
}

func newGCSPublisher(ctx context.Context, dest Destination, opts Options) (*gcsPublisher, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}

	return &gcsPublisher{
		dest:   dest,
		client: client,
		bucket: client.Bucket(dest.Bucket),
		logger: opts.Logger,
	}, nil
}

func (p *gcsPublisher) Publish(ctx context.Context, artifact Artifact, name string) (string, error) {
	start := time.Now()

	f, err := os.Open(artifact.Path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to open artifact").WithDetail("path", artifact.Path)
	}
	defer f.Close()

	key := objectKey(p.dest.Prefix, name)
	writer := p.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = artifact.ContentType
	writer.Metadata = map[string]string{
		"created": time.Now().UTC().Format(time.RFC3339),
	}

	n, err := io.Copy(writer, f)
	if err != nil {
		_ = writer.Close()
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to write to GCS").WithDetail("object", key)
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to close GCS writer").WithDetail("object", key)
	}

	uri := "gs://" + p.dest.Bucket + "/" + key
	p.logger.Info("artifact published",
		zap.String("uri", uri),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)))
	return uri, nil
}

func (p *gcsPublisher) Close() error {
	return p.client.Close()
}
