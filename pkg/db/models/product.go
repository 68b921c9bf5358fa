package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// Product is the catalog document. Variant stock is the only field order completion mutates.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" firestore:"-"`
	Name        string           `gorm:"column:name;not null" firestore:"name"`
	Description string           `gorm:"column:description;not null;default:''" firestore:"description"`
	ImageRefs   types.StringList `gorm:"column:image_refs;type:jsonb;serializer:json" firestore:"imageRefs"`
	// IsActive carries no gorm default so a false value is written on insert.
	IsActive    bool             `gorm:"column:is_active;not null" firestore:"isActive"`
	Variants    types.Variants   `gorm:"column:variants;type:jsonb;serializer:json;not null" firestore:"variants"`
	// Version increments on every write; SQL stores use it as an optimistic guard.
	Version   int64     `gorm:"column:version;not null;default:1" firestore:"version"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" firestore:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" firestore:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

// PrimaryImage returns the first image reference, if any.
func (p Product) PrimaryImage() string {
	if len(p.ImageRefs) == 0 {
		return ""
	}
	return p.ImageRefs[0]
}
