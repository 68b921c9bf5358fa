package controllers

import (
	"net/http"

	"github.com/angelmondragon/medorders-backend/api/middleware"
	"github.com/angelmondragon/medorders-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the authenticated account, which makes token issues
// easy to spot from a client.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if id := middleware.AccountIDFromContext(r.Context()); id != "" {
			payload["account_id"] = id
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = string(role)
		}
		responses.WriteSuccess(w, payload)
	}
}
