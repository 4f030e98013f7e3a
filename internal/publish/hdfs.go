package publish

import (
	"context"
	"fmt"
	"path"

	"github.com/colinmarc/hdfs/v2"
)

// HDFSConfig holds HDFS publish settings
type HDFSConfig struct {
	NameNodes []string // namenode host:port addresses
	User      string
	Dir       string // base directory documents are written under
}

// HDFSPublisher writes documents into an HDFS directory
type HDFSPublisher struct {
	client *hdfs.Client
	dir    string
}

// NewHDFSPublisher connects to the namenodes of cfg
func NewHDFSPublisher(cfg *HDFSConfig) (*HDFSPublisher, error) {
	if len(cfg.NameNodes) == 0 {
		return nil, fmt.Errorf("at least one NameNode is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if !path.IsAbs(cfg.Dir) {
		return nil, fmt.Errorf("dir must be an absolute HDFS path")
	}

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: cfg.NameNodes,
		User:      cfg.User,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HDFS client: %w", err)
	}

	return &HDFSPublisher{client: client, dir: path.Clean(cfg.Dir)}, nil
}

func (p *HDFSPublisher) Name() string {
	return "hdfs"
}

// Publish writes a temporary file next to the target and renames it over the target
func (p *HDFSPublisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := hdfsPath(p.dir, key)
	if err := p.client.MkdirAll(path.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create HDFS directory: %w", err)
	}

	tmp := target + ".tmp"
	_ = p.client.Remove(tmp)
	writer, err := p.client.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create HDFS file: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write HDFS file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close HDFS file: %w", err)
	}

	if err := p.client.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to rename HDFS file: %w", err)
	}
	return nil
}

// Close closes the namenode connection
func (p *HDFSPublisher) Close() error {
	return p.client.Close()
}

// hdfsPath joins key below dir, keeping the result inside dir
func hdfsPath(dir, key string) string {
	return path.Join(dir, path.Clean("/"+key))
}
