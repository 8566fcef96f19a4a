package publish

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const (
	s3PartSize    = 16 * 1024 * 1024
	s3Concurrency = 4
)

// s3Publisher uploads artifacts with the multipart upload manager
type s3Publisher struct {
	dest     Destination
	uploader *manager.Uploader
	logger   *zap.Logger
}

func newS3Publisher(ctx context.Context, dest Destination, opts Options) (*s3Publisher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = s3PartSize
		u.Concurrency = s3Concurrency
	})

	return &s3Publisher{dest: dest, uploader: uploader, logger: opts.Logger}, nil
}

func (p *s3Publisher) Publish(ctx context.Context, artifact Artifact, name string) (string, error) {
	start := time.Now()

	f, err := os.Open(artifact.Path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to open artifact").WithDetail("path", artifact.Path)
	}
	defer f.Close()

	key := objectKey(p.dest.Prefix, name)
	result, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.dest.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(artifact.ContentType),
		Metadata: map[string]string{
			"created": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "failed to upload to S3").
			WithDetail("bucket", p.dest.Bucket).
			WithDetail("key", key)
	}

	uri := "s3://" + p.dest.Bucket + "/" + key
	p.logger.Info("artifact published",
		zap.String("uri", uri),
		zap.String("location", result.Location),
		zap.Duration("duration", time.Since(start)))
	return uri, nil
}

func (p *s3Publisher) Close() error {
	return nil
}
