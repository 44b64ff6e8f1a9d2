package source

import (
	"context"
	"net/url"
	"os"

	"github.com/Backblaze/blazer/b2"

	"github.com/stranslate/host/internal/config"
	"github.com/stranslate/host/internal/hosterr"
)

// B2 downloads b2://bucket/file from Backblaze B2.
type B2 struct {
	cfg config.B2Config
}

func NewB2(cfg config.B2Config) *B2 {
	return &B2{cfg: cfg}
}

func (b *B2) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	bucketName, name, err := bucketKey(u)
	if err != nil {
		return 0, err
	}
	if b.cfg.AccountID == "" || b.cfg.ApplicationKey == "" {
		return 0, hosterr.NewInvalidInput("source.b2.account_id and source.b2.application_key are required for b2:// sources")
	}

	client, err := b2.NewClient(ctx, b.cfg.AccountID, b.cfg.ApplicationKey)
	if err != nil {
		return 0, err
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return 0, err
	}

	r := bucket.Object(name).NewReader(ctx)
	defer r.Close()
	return copyTo(dst, r)
}
