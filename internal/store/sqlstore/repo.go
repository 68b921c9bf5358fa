package sqlstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/medorders-backend/internal/repo"
	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/db"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
)

type repository struct {
	repo.Base
}

func newRepository(conn *gorm.DB) *repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) createOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *repository) getOrder(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error) {
	var order models.Order
	err := forUpdate(r.DB(ctx), lock).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *repository) listOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	q := r.DB(ctx).Model(&models.Order{})
	if filter.PlacedByID != "" {
		q = q.Where("placed_by_id = ?", filter.PlacedByID)
	}
	if filter.FulfilledBy != "" {
		q = q.Where("fulfilled_by = ?", filter.FulfilledBy)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status.Canonical())
	}
	if c := filter.After; c != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var orders []models.Order
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(filter.EffectiveLimit()).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) findByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("razorpay_order_id = ?", gatewayOrderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) updateOrder(ctx context.Context, id uuid.UUID, update store.OrderUpdate) error {
	values := map[string]any{
		"last_updated_at": update.LastUpdatedAt,
	}
	if update.Status != nil {
		values["status"] = update.Status.Canonical()
	}
	if update.PaymentStatus != nil {
		values["payment_status"] = *update.PaymentStatus
	}
	if update.PaymentID != nil {
		values["payment_id"] = *update.PaymentID
	}
	if update.PaymentDetails != nil {
		// map updates bypass the json serializer on the column
		encoded, err := json.Marshal(update.PaymentDetails)
		if err != nil {
			return err
		}
		values["payment_details"] = string(encoded)
	}

	result := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repository) createProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Version == 0 {
		product.Version = 1
	}
	if err := r.DB(ctx).Create(product).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *repository) getProduct(ctx context.Context, id uuid.UUID, lock bool) (*models.Product, error) {
	var product models.Product
	err := forUpdate(r.DB(ctx), lock).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// saveProduct writes every mutable product column when the stored version
// still matches the one product was read at.
func (r *repository) saveProduct(ctx context.Context, product *models.Product) error {
	next := product.Version + 1
	result := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND version = ?", product.ID, product.Version).
		Select("name", "description", "image_refs", "is_active", "variants", "version", "updated_at").
		Updates(&models.Product{
			Name:        product.Name,
			Description: product.Description,
			ImageRefs:   product.ImageRefs,
			IsActive:    product.IsActive,
			Variants:    product.Variants,
			Version:     next,
			UpdatedAt:   product.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.DB(ctx).Model(&models.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	product.Version = next
	return nil
}

func (r *repository) getAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := r.DB(ctx).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *repository) saveAccount(ctx context.Context, account *models.Account) error {
	return r.DB(ctx).Save(account).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
