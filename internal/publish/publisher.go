package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"breeze-gateway/internal/config"
	"breeze-gateway/internal/middleware"
)

// ContentType of published metadata documents
const ContentType = "application/json"

// Publisher copies a rendered metadata document to an external target
type Publisher interface {
	// Name identifies the target in logs and metrics
	Name() string

	// Publish stores body under key, replacing any previous object
	Publish(ctx context.Context, key string, body []byte) error
}

// Multi fans a document out to several publishers
type Multi []Publisher

// Name returns the names of all targets
func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, p := range m {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Publish writes to every target. A failing target does not stop the others;
// all errors are returned joined.
func (m Multi) Publish(ctx context.Context, key string, body []byte) error {
	var errs []error
	for _, p := range m {
		err := p.Publish(ctx, key, body)
		middleware.RecordPublish(p.Name(), err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close releases targets that hold connections
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Key returns the object key of a service document: <prefix>/<service>/<file>
func Key(prefix, service, file string) string {
	return path.Join(prefix, service, file)
}

// NewPublishers builds the enabled targets of cfg. It returns nil when none is enabled.
func NewPublishers(ctx context.Context, cfg config.PublishConfig) (Multi, error) {
	var targets Multi

	if cfg.File.Enabled {
		fp, err := NewFilePublisher(cfg.File.Dir)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fp)
	}

	if cfg.S3.Enabled {
		sp, err := NewS3Publisher(ctx, &S3Config{
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			SessionToken:   cfg.S3.SessionToken,
			RoleARN:        cfg.S3.RoleARN,
			ExternalID:     cfg.S3.ExternalID,
			EndpointURL:    cfg.S3.EndpointURL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			MaxRetries:     cfg.S3.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, sp)
	}

	if cfg.MinIO.Enabled {
		mp, err := NewMinIOPublisher(&MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			Secure:    cfg.MinIO.Secure,
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, mp)
	}

	if cfg.Azure.Enabled {
		ap, err := NewAzureBlobPublisher(&AzureBlobConfig{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			SASToken:    cfg.Azure.SASToken,
			Container:   cfg.Azure.Container,
			Endpoint:    cfg.Azure.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, ap)
	}

	if cfg.HDFS.Enabled {
		hp, err := NewHDFSPublisher(&HDFSConfig{
			NameNodes: cfg.HDFS.NameNodes,
			User:      cfg.HDFS.User,
			Dir:       cfg.HDFS.Dir,
		})
		if err != nil {
			_ = targets.Close()
			return nil, err
		}
		targets = append(targets, hp)
	}

	return targets, nil
}
