package models

import (
	"time"

	"github.com/angelmondragon/medorders-backend/pkg/enums"
)

// Account is a business participant. DistributorID is set for medical stores that are
// mapped to a distributor.
type Account struct {
	ID            string     `gorm:"column:id;primaryKey" firestore:"-"`
	Name          string     `gorm:"column:name;not null" firestore:"name"`
	Role          enums.Role `gorm:"column:role;type:text;not null" firestore:"role"`
	DistributorID *string    `gorm:"column:distributor_id;index" firestore:"mappedToDistributor,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" firestore:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" firestore:"updatedAt"`
}

func (Account) TableName() string {
	return "accounts"
}
