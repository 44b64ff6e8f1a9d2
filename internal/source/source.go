// Package source downloads an update package from a URL into the staging
// directory. Supported schemes: http, https, s3, gs, azblob, b2.
package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stranslate/host/internal/config"
	"github.com/stranslate/host/internal/hosterr"
	"github.com/stranslate/host/internal/logging"
)

var log = logging.L("source")

const DefaultTimeout = 10 * time.Minute

// Provider writes the object named by u into dst.
type Provider interface {
	Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error)
}

type Fetcher struct {
	providers map[string]Provider
	timeout   time.Duration
}

// New registers a provider per scheme from cfg. Cloud clients are built
// on first use.
func New(cfg config.SourceConfig) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpProvider := NewHTTP(nil)
	return &Fetcher{
		timeout: timeout,
		providers: map[string]Provider{
			"http":   httpProvider,
			"https":  httpProvider,
			"s3":     NewS3(cfg.S3),
			"gs":     NewGCS(cfg.GCS),
			"azblob": NewAzure(cfg.Azure),
			"b2":     NewB2(cfg.B2),
		},
	}
}

// Register adds or replaces the provider for scheme.
func (f *Fetcher) Register(scheme string, p Provider) {
	f.providers[strings.ToLower(scheme)] = p
}

// Fetch downloads rawURL to dest. The body goes to a temporary file next
// to dest which is renamed over it only once complete, so a failed
// download leaves any existing dest untouched.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return 0, hosterr.NewInvalidInput("invalid source URL %q", rawURL)
	}
	p, ok := f.providers[strings.ToLower(u.Scheme)]
	if !ok {
		return 0, hosterr.NewInvalidInput("unsupported source scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, hosterr.NewOSOperationFailed(err, "create "+dir, err.Error())
	}
	tmp, err := os.CreateTemp(dir, ".download-*"+filepath.Ext(dest))
	if err != nil {
		return 0, hosterr.NewOSOperationFailed(err, "create temp file in "+dir, err.Error())
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	start := time.Now()
	n, err := p.Download(ctx, u, tmp)
	if err != nil {
		if hosterr.KindOf(err) != hosterr.KindUnknown {
			return 0, err
		}
		return 0, hosterr.NewOSOperationFailed(err, "download "+redact(u), err.Error())
	}
	if err := tmp.Close(); err != nil {
		return 0, hosterr.NewOSOperationFailed(err, "close "+tmpName, err.Error())
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, hosterr.NewOSOperationFailed(err, "move download to "+dest, err.Error())
	}
	committed = true

	log.Info("package downloaded", "source", redact(u), "path", dest, "bytes", n, "durationMs", time.Since(start).Milliseconds())
	return n, nil
}

// redact drops credentials and query strings (SAS tokens) from u.
func redact(u *url.URL) string {
	c := *u
	c.User = nil
	c.RawQuery = ""
	return c.String()
}

// bucketKey splits scheme://bucket/key/with/slashes.
func bucketKey(u *url.URL) (string, string, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", hosterr.NewInvalidInput("source URL %q must look like %s://bucket/key", redact(u), u.Scheme)
	}
	return bucket, key, nil
}

func copyTo(dst *os.File, src io.Reader) (int64, error) {
	return io.Copy(dst, src)
}
