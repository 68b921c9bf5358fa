package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/medorders-backend/api/responses"
	internalorders "github.com/angelmondragon/medorders-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/medorders-backend/pkg/errors"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
)

type streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, orderID uuid.UUID) error
}

// Stream upgrades to a websocket carrying live updates for one order the
// caller may view.
func Stream(svc internalorders.Service, hub streamer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order stream unavailable"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.Get(r.Context(), actor, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// the upgrader has already answered the client when Serve fails
		if err := hub.Serve(w, r, orderID); err != nil && logg != nil {
			ctx := logg.WithOrderID(r.Context(), orderID.String())
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "order stream upgrade failed")
		}
	}
}
