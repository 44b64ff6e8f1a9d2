package source

import (
	"context"
	"net/url"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/stranslate/host/internal/config"
)

// GCS downloads gs://bucket/object.
type GCS struct {
	cfg  config.GCSConfig
	opts []option.ClientOption
}

func NewGCS(cfg config.GCSConfig, opts ...option.ClientOption) *GCS {
	return &GCS{cfg: cfg, opts: opts}
}

func (g *GCS) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	bucket, object, err := bucketKey(u)
	if err != nil {
		return 0, err
	}

	opts := append([]option.ClientOption(nil), g.opts...)
	if g.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(g.cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return copyTo(dst, r)
}
