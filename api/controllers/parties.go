package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/partyhub-backend/api/responses"
	"github.com/angelmondragon/partyhub-backend/api/validators"
	"github.com/angelmondragon/partyhub-backend/internal/lifecycle"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

type createPartyRequest struct {
	TypeID     int64   `json:"type_id" validate:"required,gt=0"`
	Title      string  `json:"title" validate:"required"`
	Content    string  `json:"content" validate:"required"`
	Image      *string `json:"image,omitempty"`
	PositionID int64   `json:"position_id" validate:"required,gt=0"`
}

func (r createPartyRequest) toInput() parties.CreatePartyInput {
	return parties.CreatePartyInput{
		TypeID:     r.TypeID,
		Title:      r.Title,
		Content:    r.Content,
		Image:      r.Image,
		PositionID: r.PositionID,
	}
}

type updatePartyRequest struct {
	TypeID  *int64  `json:"type_id,omitempty" validate:"omitempty,gt=0"`
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Content *string `json:"content,omitempty" validate:"omitempty,min=1"`
	Image   *string `json:"image,omitempty"`
}

func (r updatePartyRequest) toInput() parties.UpdatePartyInput {
	return parties.UpdatePartyInput{
		TypeID:  r.TypeID,
		Title:   r.Title,
		Content: r.Content,
		Image:   r.Image,
	}
}

// CreateParty founds a party with the caller as its master.
func CreateParty(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		userID, ok := actorID(w, r, logg)
		if !ok {
			return
		}

		var req createPartyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.CreateParty(r.Context(), lifecycle.CreatePartyInput{FounderID: userID, Party: req.toInput()})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, fmt.Sprintf("/api/v1/parties/%d", party.ID), party)
	}
}

func UpdateParty(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req updatePartyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.UpdateParty(r.Context(), lifecycle.UpdatePartyInput{ActorID: userID, PartyID: partyID, Fields: req.toInput()})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, party)
	}
}

func DeletePartyImage(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return partyCommand(logg, svc, func(r *http.Request, cmd lifecycle.PartyCommand) (any, error) {
		return svc.DeletePartyImage(r.Context(), cmd)
	})
}

// EndParty archives the party; its recruitments close with it.
func EndParty(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return partyCommand(logg, svc, func(r *http.Request, cmd lifecycle.PartyCommand) (any, error) {
		return svc.EndParty(r.Context(), cmd)
	})
}

func DeleteParty(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return partyCommand(logg, svc, func(r *http.Request, cmd lifecycle.PartyCommand) (any, error) {
		if err := svc.DeleteParty(r.Context(), cmd); err != nil {
			return nil, err
		}
		return map[string]any{"party_id": cmd.PartyID, "deleted": true}, nil
	})
}

// LeaveParty removes the caller's own membership.
func LeaveParty(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return partyCommand(logg, svc, func(r *http.Request, cmd lifecycle.PartyCommand) (any, error) {
		if err := svc.LeaveParty(r.Context(), cmd); err != nil {
			return nil, err
		}
		return map[string]any{"party_id": cmd.PartyID, "left": true}, nil
	})
}

// partyCommand resolves the caller and party id shared by the body-less party commands.
func partyCommand(logg *logger.Logger, svc lifecycle.Service, run func(*http.Request, lifecycle.PartyCommand) (any, error)) http.HandlerFunc {
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

		result, err := run(r, lifecycle.PartyCommand{ActorID: userID, PartyID: partyID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetParty(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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

		party, err := svc.GetParty(r.Context(), partyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, party)
	}
}

// ListParties pages through parties, filtered by status, type and title.
func ListParties(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}

		query, err := parsePartyListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListParties(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parsePartyListQuery(r *http.Request) (parties.ListQuery, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return parties.ListQuery{}, err
	}
	order, err := validators.ParseQueryOrder(r, "order", pagination.OrderDesc)
	if err != nil {
		return parties.ListQuery{}, err
	}
	typeIDs, err := validators.ParseQueryInt64List(r, "type_ids")
	if err != nil {
		return parties.ListQuery{}, err
	}

	query := parties.ListQuery{
		Page:    page,
		Sort:    strings.TrimSpace(r.URL.Query().Get("sort")),
		Order:   order,
		TypeIDs: typeIDs,
		Title:   validators.SanitizeString(r.URL.Query().Get("title"), maxTitleFilterLength),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePartyStatus(raw)
		if err != nil {
			return parties.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		query.Status = &status
	}
	return query, nil
}

func ListPartyTypes(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		types, err := svc.ListPartyTypes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types)
	}
}
