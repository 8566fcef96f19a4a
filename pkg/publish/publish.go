// Package publish copies finished artifacts to a destination named by a URI:
//
//	s3://bucket/prefix     Amazon S3 (or an S3-compatible endpoint)
//	gs://bucket/prefix     Google Cloud Storage
//	file:///dir            a local or mounted directory
//
// Publishing runs only after both artifacts were written successfully, so a
// destination never receives a partial conversion.
package publish

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

// Artifact is a local file to publish
type Artifact struct {
	Path        string
	ContentType string
}

// Publisher uploads local files under a destination prefix
type Publisher interface {
	// Publish uploads the artifact as name and returns its destination URI
	Publish(ctx context.Context, artifact Artifact, name string) (string, error)
	Close() error
}

// Destination is a parsed publish URI
type Destination struct {
	Scheme string
	Bucket string
	Prefix string
}

// Options carries provider specific settings
type Options struct {
	// Region overrides the AWS region from the environment
	Region string
	// Endpoint points the S3 client at an S3-compatible service
	Endpoint string
	// CredentialsFile is a GCP service account key file
	CredentialsFile string
	Logger          *zap.Logger
}

// ParseURI splits a publish URI into scheme, bucket and prefix
func ParseURI(raw string) (Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid publish URI").
			WithDetail("uri", raw)
	}

	switch u.Scheme {
	case "s3", "gs":
		if u.Host == "" {
			return Destination{}, errors.Newf(errors.ErrorTypeConfig, "publish URI %q has no bucket", raw)
		}
		return Destination{Scheme: u.Scheme, Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
	case "file":
		if u.Path == "" {
			return Destination{}, errors.Newf(errors.ErrorTypeConfig, "publish URI %q has no directory", raw)
		}
		return Destination{Scheme: u.Scheme, Prefix: u.Path}, nil
	default:
		return Destination{}, errors.Newf(errors.ErrorTypeConfig, "unsupported publish scheme %q", u.Scheme)
	}
}

// New creates the publisher for uri
func New(ctx context.Context, uri string, opts Options) (Publisher, error) {
	dest, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch dest.Scheme {
	case "s3":
		return newS3Publisher(ctx, dest, opts)
	case "gs":
		return newGCSPublisher(ctx, dest, opts)
	default:
		return newFilePublisher(dest, opts)
	}
}

// PublishAll uploads every artifact under its base name, stopping at the
// first failure
func PublishAll(ctx context.Context, p Publisher, artifacts ...Artifact) ([]string, error) {
	uris := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		uri, err := p.Publish(ctx, a, filepath.Base(a.Path))
		if err != nil {
			return uris, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
