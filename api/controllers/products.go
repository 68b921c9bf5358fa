package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/medorders-backend/api/responses"
	"github.com/angelmondragon/medorders-backend/api/validators"
	productsvc "github.com/angelmondragon/medorders-backend/internal/products"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 4000
	maxImageRefLength    = 1024
)

// AdminCreateProduct creates a catalog product with its variants and stock.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

// AdminUpdateProduct edits a product. Variants, when sent, replace the list.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// GetProduct returns a product with live stock.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type variantRequest struct {
	Size      string `json:"size" validate:"required"`
	Pieces    int    `json:"pieces" validate:"gte=0"`
	UnitPrice string `json:"unitPrice" validate:"required"`
	Stock     int    `json:"stock" validate:"gte=0"`
}

type createProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	ImageRefs   []string         `json:"imageRefs,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
	Variants    []variantRequest `json:"variants" validate:"required,min=1,dive"`
}

type updateProductRequest struct {
	Name        *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string           `json:"description,omitempty"`
	ImageRefs   *[]string         `json:"imageRefs,omitempty"`
	IsActive    *bool             `json:"isActive,omitempty"`
	Variants    *[]variantRequest `json:"variants,omitempty" validate:"omitempty,min=1,dive"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	variants, err := toVariants(r.Variants)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return productsvc.CreateProductInput{
		Name:        validators.SanitizeString(r.Name, maxNameLength),
		Description: validators.SanitizeString(r.Description, maxDescriptionLength),
		ImageRefs:   validators.SanitizeStrings(r.ImageRefs, maxImageRefLength),
		IsActive:    active,
		Variants:    variants,
	}, nil
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{IsActive: r.IsActive}
	if r.ImageRefs != nil {
		refs := validators.SanitizeStrings(*r.ImageRefs, maxImageRefLength)
		input.ImageRefs = &refs
	}
	if r.Name != nil {
		name := validators.SanitizeString(*r.Name, maxNameLength)
		input.Name = &name
	}
	if r.Description != nil {
		desc := validators.SanitizeString(*r.Description, maxDescriptionLength)
		input.Description = &desc
	}
	if r.Variants != nil {
		variants, err := toVariants(*r.Variants)
		if err != nil {
			return productsvc.UpdateProductInput{}, err
		}
		input.Variants = &variants
	}
	return input, nil
}

func toVariants(in []variantRequest) ([]types.Variant, error) {
	out := make([]types.Variant, 0, len(in))
	for _, v := range in {
		paise, err := parsePaise(v.UnitPrice)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price").
				WithDetails(map[string]any{"size": v.Size, "unitPrice": v.UnitPrice})
		}
		out = append(out, types.Variant{
			Size:           strings.TrimSpace(v.Size),
			Pieces:         v.Pieces,
			UnitPricePaise: paise,
			Stock:          v.Stock,
		})
	}
	return out, nil
}

// parsePaise converts a rupee amount such as "180.50" to paise.
func parsePaise(raw string) (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if amount.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	paise := amount.Shift(2)
	if !paise.Equal(paise.Truncate(0)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unit price has more than two decimal places")
	}
	return paise.IntPart(), nil
}

type variantResponse struct {
	Size      string `json:"size"`
	Pieces    int    `json:"pieces"`
	UnitPrice string `json:"unitPrice"`
	Stock     int    `json:"stock"`
}

type productResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageRefs   []string          `json:"imageRefs"`
	IsActive    bool              `json:"isActive"`
	Variants    []variantResponse `json:"variants"`
}

func newProductResponse(p *models.Product) productResponse {
	variants := make([]variantResponse, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, variantResponse{
			Size:      v.Size,
			Pieces:    v.Pieces,
			UnitPrice: decimal.NewFromInt(v.UnitPricePaise).Shift(-2).StringFixed(2),
			Stock:     v.Stock,
		})
	}
	refs := []string(p.ImageRefs)
	if refs == nil {
		refs = []string{}
	}
	return productResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		ImageRefs:   refs,
		IsActive:    p.IsActive,
		Variants:    variants,
	}
}

func parseProductID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "productId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return id, nil
}
