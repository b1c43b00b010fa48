package controllers

import (
	"net/http"

	"github.com/angelmondragon/partyhub-backend/api/middleware"
	"github.com/angelmondragon/partyhub-backend/api/responses"
)

type pingResponse struct {
	Scope   string `json:"scope"`
	Status  string `json:"status"`
	UserID  int64  `json:"user_id,omitempty"`
	TokenID string `json:"token_id,omitempty"`
}

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingResponse{Scope: "public", Status: "ok"})
	}
}

// PrivatePing echoes the resolved principal so clients can check their token end to end.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := pingResponse{Scope: "private", Status: "ok"}
		if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
			resp.UserID = p.UserID
			resp.TokenID = p.TokenID
		}
		responses.WriteSuccess(w, resp)
	}
}
