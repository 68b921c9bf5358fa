package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/medorders-backend/internal/store"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// Service exposes admin catalog management.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	ImageRefs   []string
	IsActive    bool
	Variants    []types.Variant
}

// UpdateProductInput holds optional mutation values. Variants, when set,
// replace the whole list, stock included.
type UpdateProductInput struct {
	Name        *string
	Description *string
	ImageRefs   *[]string
	IsActive    *bool
	Variants    *[]types.Variant
}

type service struct {
	store store.Store
	now   func() time.Time
}

// NewService constructs a product service instance.
func NewService(st store.Store, now func() time.Time) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("product store required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{store: st, now: now}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	variants, err := normalizeVariants(input.Variants)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		ImageRefs:   cleanRefs(input.ImageRefs),
		IsActive:    input.IsActive,
		Variants:    variants,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return product, nil
}

// UpdateProduct edits a product in a transaction so it cannot interleave with
// an order completion drawing stock from the same document.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var (
		name     string
		variants types.Variants
	)
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
	}
	if input.Variants != nil {
		normalized, err := normalizeVariants(*input.Variants)
		if err != nil {
			return nil, err
		}
		variants = normalized
	}

	var updated *models.Product
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if input.Name != nil {
			product.Name = name
		}
		if input.Description != nil {
			product.Description = strings.TrimSpace(*input.Description)
		}
		if input.ImageRefs != nil {
			product.ImageRefs = cleanRefs(*input.ImageRefs)
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}
		if input.Variants != nil {
			product.Variants = variants.Clone()
		}
		product.UpdatedAt = s.now()
		if err := tx.SaveProduct(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return updated, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func normalizeVariants(in []types.Variant) (types.Variants, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}
	seen := make(map[string]struct{}, len(in))
	out := make(types.Variants, 0, len(in))
	for _, v := range in {
		v.Size = strings.TrimSpace(v.Size)
		switch {
		case v.Size == "":
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant size is required")
		case v.Stock < 0:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stock for size %s cannot be negative", v.Size))
		case v.UnitPricePaise < 0:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("price for size %s cannot be negative", v.Size))
		case v.Pieces < 0:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("pieces for size %s cannot be negative", v.Size))
		}
		if _, dup := seen[v.Size]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size %s listed more than once", v.Size))
		}
		seen[v.Size] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func cleanRefs(refs []string) types.StringList {
	out := make(types.StringList, 0, len(refs))
	for _, ref := range refs {
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, ref)
		}
	}
	return out
}
