package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilePublisher writes documents below a local directory
type FilePublisher struct {
	dir string
}

// NewFilePublisher creates the directory if needed
func NewFilePublisher(dir string) (*FilePublisher, error) {
	if dir == "" {
		return nil, fmt.Errorf("publish directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory: %w", err)
	}
	return &FilePublisher{dir: dir}, nil
}

func (p *FilePublisher) Name() string {
	return "file"
}

// Publish writes to a temporary file first and renames it, so readers never see a partial document.
func (p *FilePublisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(p.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".metadata-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move document into place: %w", err)
	}
	return nil
}
