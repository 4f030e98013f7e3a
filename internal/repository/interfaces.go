package repository

import (
	"context"

	"breeze-gateway/internal/model"
)

// SnapshotRepository defines the interface for metadata snapshot data operations
type SnapshotRepository interface {
	// Create stores a new snapshot
	Create(ctx context.Context, snapshot *model.MetadataSnapshot) error

	// GetByID retrieves a snapshot, including its document, by its UUID
	GetByID(ctx context.Context, id string) (*model.MetadataSnapshot, error)

	// Latest retrieves the most recent snapshot of a service
	Latest(ctx context.Context, service string) (*model.MetadataSnapshot, error)

	// List retrieves snapshots without their documents, newest first.
	// An empty service lists snapshots of all services.
	List(ctx context.Context, service string, limit, offset int) ([]*model.MetadataSnapshot, int64, error)
}
