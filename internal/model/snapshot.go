package model

import (
	"database/sql/driver"
	"errors"
	"time"

	"gorm.io/gorm"

	"breeze-gateway/internal/utils"
)

// Document is a rendered Breeze metadata document stored in a JSON column
type Document []byte

// Value implements driver.Valuer interface for GORM
func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

// Scan implements sql.Scanner interface for GORM
func (d *Document) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*d = append((*d)[:0], v...)
	case string:
		*d = Document(v)
	default:
		return errors.New("unsupported type for metadata document")
	}
	return nil
}

// MarshalJSON embeds the document as raw JSON
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps the raw JSON
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// MetadataSnapshot is a version of a service's metadata document.
// A new snapshot is stored whenever the rendered document changes.
type MetadataSnapshot struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Service   string    `gorm:"size:100;not null;index:idx_snapshot_service_created,priority:1" json:"service"`
	Version   string    `gorm:"size:16;not null" json:"version"`
	Document  Document  `gorm:"type:json;not null" json:"document,omitempty"`
	TypeCount int       `gorm:"not null;default:0" json:"typeCount"`
	CreatedAt time.Time `gorm:"index:idx_snapshot_service_created,priority:2" json:"createdAt"`
}

// TableName returns the table name for the MetadataSnapshot model
func (MetadataSnapshot) TableName() string {
	return "metadata_snapshots"
}

// BeforeCreate generates a new UUID if ID is empty
func (s *MetadataSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateUUID()
	}
	return nil
}
