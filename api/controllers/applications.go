package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/partyhub-backend/api/responses"
	"github.com/angelmondragon/partyhub-backend/api/validators"
	"github.com/angelmondragon/partyhub-backend/internal/applications"
	"github.com/angelmondragon/partyhub-backend/internal/lifecycle"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

type submitApplicationRequest struct {
	Message string `json:"message" validate:"required,max=500"`
}

// SubmitApplication files the caller's application to a recruitment.
func SubmitApplication(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		target, ok := resolveRecruitmentTarget(w, r, logg)
		if !ok {
			return
		}

		var req submitApplicationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		app, err := svc.SubmitApplication(r.Context(), lifecycle.SubmitApplicationInput{
			UserID:        target.actorID,
			PartyID:       target.partyID,
			RecruitmentID: target.recruitmentID,
			Application:   applications.SubmitInput{Message: req.Message},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, fmt.Sprintf("/api/v1/parties/%d/recruitments/%d/applications/me", target.partyID, target.recruitmentID), app)
	}
}

func ApproveApplication(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return applicationDecision(logg, svc, func(r *http.Request, in lifecycle.ApplicationDecisionInput) (any, error) {
		return svc.ApproveApplication(r.Context(), in)
	})
}

func RejectApplication(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return applicationDecision(logg, svc, func(r *http.Request, in lifecycle.ApplicationDecisionInput) (any, error) {
		return svc.RejectApplication(r.Context(), in)
	})
}

func applicationDecision(logg *logger.Logger, svc lifecycle.Service, decide func(*http.Request, lifecycle.ApplicationDecisionInput) (any, error)) http.HandlerFunc {
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
		applicationID, err := validators.PathID(r, paramApplicationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := decide(r, lifecycle.ApplicationDecisionInput{
			ActorID:       userID,
			PartyID:       partyID,
			ApplicationID: applicationID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListApplications pages through a recruitment's applications for reviewers.
func ListApplications(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		target, ok := resolveRecruitmentTarget(w, r, logg)
		if !ok {
			return
		}

		query, err := parseApplicationListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListApplications(r.Context(), lifecycle.ListApplicationsInput{
			ActorID:       target.actorID,
			PartyID:       target.partyID,
			RecruitmentID: target.recruitmentID,
			Query:         query,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseApplicationListQuery(r *http.Request) (applications.ListQuery, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return applications.ListQuery{}, err
	}
	order, err := validators.ParseQueryOrder(r, "order", pagination.OrderDesc)
	if err != nil {
		return applications.ListQuery{}, err
	}
	query := applications.ListQuery{Page: page, Order: order}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseApplicationStatus(raw)
		if err != nil {
			return applications.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		query.Status = &status
	}
	return query, nil
}

// MyApplication returns the caller's latest application to a recruitment.
func MyApplication(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		target, ok := resolveRecruitmentTarget(w, r, logg)
		if !ok {
			return
		}

		app, err := svc.GetMyApplication(r.Context(), lifecycle.RecruitmentCommand{
			ActorID:       target.actorID,
			PartyID:       target.partyID,
			RecruitmentID: target.recruitmentID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, app)
	}
}
