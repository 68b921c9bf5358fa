package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/angelmondragon/medorders-backend/internal/orders"
	"github.com/angelmondragon/medorders-backend/pkg/db/models"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/types"
)

type createOrderRequest struct {
	ProductID   string              `json:"productId" validate:"required,uuid"`
	PaymentMode string              `json:"paymentMode" validate:"required"`
	Items       []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createItemRequest struct {
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0,lte=100000"`
}

func (r createOrderRequest) toInput() (internalorders.CreateInput, error) {
	productID, err := uuid.Parse(strings.TrimSpace(r.ProductID))
	if err != nil {
		return internalorders.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	mode, err := enums.ParsePaymentMode(r.PaymentMode)
	if err != nil {
		return internalorders.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment mode")
	}
	items := make([]internalorders.ItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, internalorders.ItemInput{Size: item.Size, Quantity: item.Quantity})
	}
	return internalorders.CreateInput{
		ProductID:   productID,
		PaymentMode: mode,
		Items:       items,
	}, nil
}

type orderItemResponse struct {
	Size      string `json:"size"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Pieces    int    `json:"pieces"`
	LineTotal string `json:"lineTotal"`
}

type orderResponse struct {
	ID              string                `json:"id"`
	PlacedBy        types.ActorSnapshot   `json:"placedBy"`
	FulfilledBy     string                `json:"fulfilledBy"`
	Product         types.ProductSnapshot `json:"product"`
	Items           []orderItemResponse   `json:"items"`
	TotalAmount     string                `json:"totalAmount"`
	PaymentMode     enums.PaymentMode     `json:"paymentMode"`
	Status          enums.OrderStatus     `json:"status"`
	PaymentStatus   enums.PaymentStatus   `json:"paymentStatus"`
	RazorpayOrderID *string               `json:"razorpayOrderId,omitempty"`
	PaymentID       *string               `json:"paymentId,omitempty"`
	PaymentDetails  *types.PaymentDetails `json:"paymentDetails,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	LastUpdatedAt   time.Time             `json:"lastUpdatedAt"`
}

// checkoutResponse is what a client needs to open the gateway checkout.
type checkoutResponse struct {
	KeyID       string `json:"keyId"`
	OrderID     string `json:"orderId"`
	AmountPaise int64  `json:"amountPaise"`
	Currency    string `json:"currency"`
}

type createOrderResponse struct {
	Order    orderResponse     `json:"order"`
	Checkout *checkoutResponse `json:"checkout,omitempty"`
}

type listOrdersResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func rupees(paise int64) string {
	return decimal.NewFromInt(paise).Shift(-2).StringFixed(2)
}

func newOrderResponse(o *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			Size:      item.Size,
			UnitPrice: rupees(item.UnitPricePaise),
			Quantity:  item.Quantity,
			Pieces:    item.Pieces,
			LineTotal: rupees(item.LineTotalPaise),
		})
	}
	return orderResponse{
		ID:              o.ID.String(),
		PlacedBy:        o.PlacedBy,
		FulfilledBy:     o.FulfilledBy,
		Product:         o.Product,
		Items:           items,
		TotalAmount:     rupees(o.TotalAmountPaise),
		PaymentMode:     o.PaymentMode,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		RazorpayOrderID: o.RazorpayOrderID,
		PaymentID:       o.PaymentID,
		PaymentDetails:  o.PaymentDetails,
		CreatedAt:       o.CreatedAt,
		LastUpdatedAt:   o.LastUpdatedAt,
	}
}
