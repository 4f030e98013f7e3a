package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"breeze-gateway/internal/model"
	"breeze-gateway/internal/utils"
)

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new instance of SnapshotRepository
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Create stores a new snapshot
func (r *snapshotRepository) Create(ctx context.Context, snapshot *model.MetadataSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// GetByID retrieves a snapshot by its UUID
func (r *snapshotRepository) GetByID(ctx context.Context, id string) (*model.MetadataSnapshot, error) {
	if !utils.IsValidUUID(id) {
		return nil, ErrInvalidUUID
	}

	var snapshot model.MetadataSnapshot
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, result.Error
	}
	return &snapshot, nil
}

// Latest retrieves the most recent snapshot of a service
func (r *snapshotRepository) Latest(ctx context.Context, service string) (*model.MetadataSnapshot, error) {
	var snapshot model.MetadataSnapshot
	result := r.db.WithContext(ctx).Where("service = ?", service).Order("created_at DESC").First(&snapshot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, result.Error
	}
	return &snapshot, nil
}

// List retrieves snapshots without their documents
func (r *snapshotRepository) List(ctx context.Context, service string, limit, offset int) ([]*model.MetadataSnapshot, int64, error) {
	var snapshots []*model.MetadataSnapshot
	var total int64

	query := r.db.WithContext(ctx).Model(&model.MetadataSnapshot{})

	// Apply service filter if provided
	if service != "" {
		query = query.Where("service = ?", service)
	}
	query = query.Session(&gorm.Session{})

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := query.Omit("document").Limit(limit).Offset(offset).Order("created_at DESC").Find(&snapshots)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return snapshots, total, nil
}
