package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// Order is the order document. Items and the product snapshot never change after creation.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" firestore:"-"`
	PlacedBy         types.ActorSnapshot   `gorm:"column:placed_by;type:jsonb;serializer:json;not null" firestore:"placedBy"`
	PlacedByID       string                `gorm:"column:placed_by_id;not null;index" firestore:"placedById"`
	FulfilledBy      string                `gorm:"column:fulfilled_by;not null;index" firestore:"fulfilledBy"`
	Product          types.ProductSnapshot `gorm:"column:product;type:jsonb;serializer:json;not null" firestore:"product"`
	ProductID        uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index" firestore:"-"`
	Items            types.OrderItems      `gorm:"column:items;type:jsonb;serializer:json;not null" firestore:"items"`
	TotalAmountPaise int64                 `gorm:"column:total_amount_paise;not null" firestore:"totalAmountPaise"`
	PaymentMode      enums.PaymentMode     `gorm:"column:payment_mode;type:text;not null;default:'direct'" firestore:"paymentMode"`
	Status           enums.OrderStatus     `gorm:"column:status;type:text;not null" firestore:"status"`
	PaymentStatus    enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'Unpaid'" firestore:"paymentStatus"`
	RazorpayOrderID  *string               `gorm:"column:razorpay_order_id;index" firestore:"razorpayOrderId,omitempty"`
	PaymentID        *string               `gorm:"column:payment_id" firestore:"paymentId,omitempty"`
	PaymentDetails   *types.PaymentDetails `gorm:"column:payment_details;type:jsonb;serializer:json" firestore:"paymentDetails,omitempty"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime" firestore:"createdAt"`
	LastUpdatedAt    time.Time             `gorm:"column:last_updated_at;autoUpdateTime" firestore:"lastUpdatedAt"`
}

// TableName pins the table name.
func (Order) TableName() string {
	return "orders"
}
