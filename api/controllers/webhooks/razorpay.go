package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/medorders-backend/api/responses"
	razorpaywebhook "github.com/angelmondragon/medorders-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
)

// maxPayloadBytes bounds webhook bodies; Razorpay payloads are a few KB.
const maxPayloadBytes = 256 << 10

type RazorpayWebhookService interface {
	HandleEvent(ctx context.Context, event *razorpaywebhook.Event, signature string) (razorpaywebhook.Outcome, error)
}

type razorpayWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// RazorpayWebhook verifies and applies Razorpay payment notifications. guard
// may be nil; the order status check alone keeps replays harmless.
func RazorpayWebhook(svc RazorpayWebhookService, secret string, guard razorpayWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook payload too large").
					WithDetails(map[string]any{"limitBytes": tooLarge.Limit}))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(razorpaywebhook.SignatureHeader))
		if !razorpaywebhook.VerifySignature(payload, secret, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "invalid razorpay signature"))
			return
		}

		var event razorpaywebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventID := razorpaywebhook.EventKey(strings.TrimSpace(r.Header.Get(razorpaywebhook.EventIDHeader)), &event)
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event": event.Event, "event_id": eventID})
		}

		marked := false
		if guard != nil && eventID != "" {
			seen, err := guard.CheckAndMark(ctx, eventID)
			switch {
			case err != nil:
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "webhook idempotency guard unavailable; relying on order status")
				}
			case seen:
				if logg != nil {
					logg.Info(ctx, "razorpay delivery already processed")
				}
				responses.WriteSuccess(w, map[string]string{"outcome": string(razorpaywebhook.OutcomeDuplicate)})
				return
			default:
				marked = true
			}
		}

		outcome, err := svc.HandleEvent(ctx, &event, signature)
		if err != nil {
			if marked {
				_ = guard.Delete(ctx, eventID)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", string(outcome)), "razorpay event processed")
		}
		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
