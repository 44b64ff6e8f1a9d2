package source

import (
	"context"
	"net/http"
	"net/url"
	"os"

	"github.com/stranslate/host/internal/httputil"
)

// HTTP downloads over plain HTTP(S) with retries.
type HTTP struct {
	client *http.Client
	retry  httputil.RetryConfig
}

func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{client: client, retry: httputil.DefaultRetryConfig()}
}

func (h *HTTP) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	resp, err := httputil.Get(ctx, h.client, u.String(), http.Header{"Accept": {"application/zip, application/octet-stream"}}, h.retry)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return copyTo(dst, resp.Body)
}
