package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// AzureBlobConfig holds Azure Blob Storage publish settings
type AzureBlobConfig struct {
	AccountName string
	AccountKey  string // base64 shared key
	SASToken    string // used instead of the shared key when set
	Container   string
	Endpoint    string // optional, defaults to https://<account>.blob.core.windows.net/
}

// AzureBlobPublisher uploads documents as block blobs
type AzureBlobPublisher struct {
	client    *azblob.Client
	container string
}

// NewAzureBlobPublisher creates a blob client authenticated by shared key or SAS token
func NewAzureBlobPublisher(cfg *AzureBlobConfig) (*AzureBlobPublisher, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("container is required")
	}
	if cfg.AccountKey == "" && cfg.SASToken == "" {
		return nil, fmt.Errorf("account key or SAS token is required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	if cfg.Endpoint != "" {
		serviceURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/"
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.SASToken != "" {
		client, err = azblob.NewClientWithNoCredential(serviceURL+"?"+strings.TrimPrefix(cfg.SASToken, "?"), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob client with SAS: %w", err)
		}
	} else {
		credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
		}
	}

	return &AzureBlobPublisher{client: client, container: cfg.Container}, nil
}

func (p *AzureBlobPublisher) Name() string {
	return "azure"
}

func (p *AzureBlobPublisher) Publish(ctx context.Context, key string, body []byte) error {
	contentType := ContentType
	_, err := p.client.UploadBuffer(ctx, p.container, key, body, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}
