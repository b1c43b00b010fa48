package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/partyhub-backend/api/responses"
	"github.com/angelmondragon/partyhub-backend/api/validators"
	"github.com/angelmondragon/partyhub-backend/internal/lifecycle"
	"github.com/angelmondragon/partyhub-backend/internal/memberships"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

type delegateMasterRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type changeAuthorityRequest struct {
	Authority string `json:"authority" validate:"required,oneof=editor member"`
}

func RemoveMember(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		userID, ok := actorID(w, r, logg)
		if !ok {
			return
		}
		partyID, err := validators.PathID(r, paramPartyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partyUserID, err := validators.PathID(r, paramPartyUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveMember(r.Context(), lifecycle.RemoveMemberInput{
			ActorID:     userID,
			PartyID:     partyID,
			PartyUserID: partyUserID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"party_user_id": partyUserID, "removed": true})
	}
}

func BatchRemoveMembers(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		userID, ok := actorID(w, r, logg)
		if !ok {
			return
		}
		partyID, err := validators.PathID(r, paramPartyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req idsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.BatchRemoveMembers(r.Context(), lifecycle.BatchRemoveMembersInput{
			ActorID:      userID,
			PartyID:      partyID,
			PartyUserIDs: req.IDs,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"party_user_ids": req.IDs, "removed": true})
	}
}

// DelegateMaster hands the master role to another member.
func DelegateMaster(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		userID, ok := actorID(w, r, logg)
		if !ok {
			return
		}
		partyID, err := validators.PathID(r, paramPartyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req delegateMasterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DelegateMaster(r.Context(), lifecycle.DelegateMasterInput{
			ActorID:         userID,
			PartyID:         partyID,
			NewMasterUserID: req.UserID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"party_id": partyID, "master_user_id": req.UserID})
	}
}

func ChangeMemberAuthority(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		userID, ok := actorID(w, r, logg)
		if !ok {
			return
		}
		partyID, err := validators.PathID(r, paramPartyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partyUserID, err := validators.PathID(r, paramPartyUserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req changeAuthorityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		authority, err := enums.ParsePartyAuthority(req.Authority)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid authority"))
			return
		}

		if err := svc.ChangeMemberAuthority(r.Context(), lifecycle.ChangeAuthorityInput{
			ActorID:     userID,
			PartyID:     partyID,
			PartyUserID: partyUserID,
			Authority:   authority,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"party_user_id": partyUserID, "authority": authority})
	}
}

// ListMembers returns a party roster.
func ListMembers(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		partyID, err := validators.PathID(r, paramPartyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := validators.ParseQueryOrder(r, "order", pagination.OrderAsc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.ListMembers(r.Context(), partyID, memberships.ListQuery{
			Main:  strings.TrimSpace(r.URL.Query().Get("main")),
			Sort:  strings.TrimSpace(r.URL.Query().Get("sort")),
			Order: order,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}
