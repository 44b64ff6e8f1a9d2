package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stranslate/host/internal/config"
)

// S3 downloads s3://bucket/key from AWS or an S3-compatible endpoint.
type S3 struct {
	cfg config.S3Config

	once   sync.Once
	client *s3.Client
	err    error
}

func NewS3(cfg config.S3Config) *S3 {
	return &S3{cfg: cfg}
}

func (s *S3) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	bucket, key, err := bucketKey(u)
	if err != nil {
		return 0, err
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return 0, err
	}

	downloader := manager.NewDownloader(client)
	return downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
}

// getClient uses the SDK default credential chain (env vars, shared
// config, IAM role) unless static keys are configured.
func (s *S3) getClient(ctx context.Context) (*s3.Client, error) {
	s.once.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if s.cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s.cfg.Region))
		}
		if s.cfg.AccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}

		var s3Opts []func(*s3.Options)
		if s.cfg.Endpoint != "" {
			endpoint := s.cfg.Endpoint
			s3Opts = append(s3Opts, func(o *s3.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		if s.cfg.UsePathStyle {
			s3Opts = append(s3Opts, func(o *s3.Options) {
				o.UsePathStyle = true
			})
		}
		s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	})
	return s.client, s.err
}
