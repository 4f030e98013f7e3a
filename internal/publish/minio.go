package publish

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds MinIO publish settings
type MinIOConfig struct {
	Endpoint  string // e.g. localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool // Use HTTPS
}

// MinIOPublisher uploads documents to a MinIO bucket
type MinIOPublisher struct {
	client *minio.Client
	bucket string
}

// NewMinIOPublisher creates a MinIO client with static credentials
func NewMinIOPublisher(cfg *MinIOConfig) (*MinIOPublisher, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("access key and secret key are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOPublisher{client: client, bucket: cfg.Bucket}, nil
}

func (p *MinIOPublisher) Name() string {
	return "minio"
}

func (p *MinIOPublisher) Publish(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: ContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}
