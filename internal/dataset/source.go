package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source opens a named dataset object.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FileSource reads datasets from a local directory.
type FileSource struct {
	Dir string
}

func (s FileSource) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, key))
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", key, err)
	}
	return f, nil
}

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads datasets from an S3 bucket.
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Source builds an S3 client from the default AWS credential chain.
func NewS3Source(ctx context.Context, region, bucket, prefix string) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Source{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

func (s *S3Source) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s%s: %w", s.bucket, s.prefix, key, err)
	}
	return out.Body, nil
}

// FallbackSource tries Primary first and falls back to Fallback on error.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	Logger   *slog.Logger
}

func (s FallbackSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.Primary.Open(ctx, key)
	if err == nil {
		return rc, nil
	}
	if s.Fallback == nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Warn("primary dataset source failed, using fallback", "key", key, "error", err)
	}
	return s.Fallback.Open(ctx, key)
}
