package feed

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gyaneshwarpardhi/activityfeed/internal/config"
)

// S3Source streams the feed from an S3 (or S3-compatible) object.
type S3Source struct {
	client      *s3.Client
	bucket      string
	key         string
	compression string
}

// NewS3Source resolves AWS credentials from the default chain and builds a
// client honouring the optional endpoint and path-style settings.
func NewS3Source(ctx context.Context, bucket, key string, conf config.FeedConf) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if conf.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(conf.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("feed: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if conf.S3.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(conf.S3.Endpoint)
		})
	}
	if conf.S3.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Source{
		client:      s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:      bucket,
		key:         key,
		compression: conf.Compression,
	}, nil
}

func (s *S3Source) Name() string { return "s3://" + s.bucket + "/" + s.key }

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("feed: get %s: %w", s.Name(), err)
	}
	return decompress(out.Body, s.key, aws.ToString(out.ContentEncoding), s.compression), nil
}
