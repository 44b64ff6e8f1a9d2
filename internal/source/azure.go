package source

import (
	"context"
	"net/url"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/stranslate/host/internal/config"
	"github.com/stranslate/host/internal/hosterr"
)

// Azure downloads azblob://container/blob from the configured account.
type Azure struct {
	cfg config.AzureConfig
}

func NewAzure(cfg config.AzureConfig) *Azure {
	return &Azure{cfg: cfg}
}

func (a *Azure) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	container, blob, err := bucketKey(u)
	if err != nil {
		return 0, err
	}
	client, err := a.newClient()
	if err != nil {
		return 0, err
	}
	return client.DownloadFile(ctx, container, blob, dst, nil)
}

// newClient prefers a connection string; an account URL alone works for
// public containers or when it carries a SAS token.
func (a *Azure) newClient() (*azblob.Client, error) {
	switch {
	case a.cfg.ConnectionString != "":
		return azblob.NewClientFromConnectionString(a.cfg.ConnectionString, nil)
	case a.cfg.AccountURL != "":
		return azblob.NewClientWithNoCredential(a.cfg.AccountURL, nil)
	default:
		return nil, hosterr.NewInvalidInput("source.azure.account_url or source.azure.connection_string is required for azblob:// sources")
	}
}
