// Package stock applies order quantities to product variant stock.
package stock

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

// Line is a quantity requested against one variant size.
type Line struct {
	Size     string
	Quantity int
}

// InsufficientStockError reports a variant that cannot cover a line.
type InsufficientStockError struct {
	Size      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for size %s: requested %d, available %d", e.Size, e.Requested, e.Available)
}

// VariantNotFoundError reports an order line whose size no longer exists on the product.
type VariantNotFoundError struct {
	Size string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant with size %s not found", e.Size)
}

// LinesFromItems maps order items onto stock lines.
func LinesFromItems(items types.OrderItems) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{Size: item.Size, Quantity: item.Quantity})
	}
	return lines
}

// Decrement returns a copy of variants with every line subtracted. Lines are
// applied in order, so repeated sizes draw from the same running stock. The
// input is never modified and nothing is returned on failure.
func Decrement(variants types.Variants, lines []Line) (types.Variants, error) {
	next := variants.Clone()
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for size %s must be positive", line.Size))
		}
		idx := next.Find(line.Size)
		if idx < 0 {
			return nil, wrap(&VariantNotFoundError{Size: line.Size})
		}
		available := next[idx].Stock
		if line.Quantity > available {
			return nil, wrap(&InsufficientStockError{Size: line.Size, Requested: line.Quantity, Available: available})
		}
		next[idx].Stock = available - line.Quantity
	}
	return next, nil
}

func wrap(err error) error {
	details := map[string]any{}
	switch e := err.(type) {
	case *InsufficientStockError:
		details["size"] = e.Size
		details["requested"] = e.Requested
		details["available"] = e.Available
	case *VariantNotFoundError:
		details["size"] = e.Size
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, err.Error()).WithDetails(details)
}
