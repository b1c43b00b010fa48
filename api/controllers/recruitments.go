package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/partyhub-backend/api/responses"
	"github.com/angelmondragon/partyhub-backend/api/validators"
	"github.com/angelmondragon/partyhub-backend/internal/lifecycle"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

type recruitmentRequest struct {
	PositionID      int64  `json:"position_id" validate:"required,gt=0"`
	Content         string `json:"content" validate:"required"`
	RecruitingCount int    `json:"recruiting_count" validate:"required,min=1"`
}

func (r recruitmentRequest) toInput() recruitments.OpenInput {
	return recruitments.OpenInput{
		PositionID:      r.PositionID,
		Content:         r.Content,
		RecruitingCount: r.RecruitingCount,
	}
}

type recruitmentBatchRequest struct {
	Recruitments []recruitmentRequest `json:"recruitments" validate:"required,min=1,max=5,dive"`
}

type updateRecruitmentRequest struct {
	PositionID      *int64  `json:"position_id,omitempty" validate:"omitempty,gt=0"`
	Content         *string `json:"content,omitempty" validate:"omitempty,min=1"`
	RecruitingCount *int    `json:"recruiting_count,omitempty" validate:"omitempty,min=1"`
}

func (r updateRecruitmentRequest) toInput() recruitments.UpdateInput {
	return recruitments.UpdateInput{
		PositionID:      r.PositionID,
		Content:         r.Content,
		RecruitingCount: r.RecruitingCount,
	}
}

type idsRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// recruitmentTarget holds the common path values of a recruitment-scoped command.
type recruitmentTarget struct {
	actorID       int64
	partyID       int64
	recruitmentID int64
}

func resolveRecruitmentTarget(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (recruitmentTarget, bool) {
	userID, ok := actorID(w, r, logg)
	if !ok {
		return recruitmentTarget{}, false
	}
	partyID, err := validators.PathID(r, paramPartyID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return recruitmentTarget{}, false
	}
	recruitmentID, err := validators.PathID(r, paramRecruitmentID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return recruitmentTarget{}, false
	}
	return recruitmentTarget{actorID: userID, partyID: partyID, recruitmentID: recruitmentID}, true
}

func CreateRecruitment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req recruitmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.CreateRecruitment(r.Context(), lifecycle.CreateRecruitmentInput{
			ActorID:     userID,
			PartyID:     partyID,
			Recruitment: req.toInput(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, fmt.Sprintf("/api/v1/parties/%d/recruitments/%d", partyID, rec.ID), rec)
	}
}

// CreateRecruitments opens a batch of postings atomically.
func CreateRecruitments(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req recruitmentBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inputs := make([]recruitments.OpenInput, 0, len(req.Recruitments))
		for _, item := range req.Recruitments {
			inputs = append(inputs, item.toInput())
		}

		recs, err := svc.CreateRecruitments(r.Context(), lifecycle.CreateRecruitmentsInput{
			ActorID:      userID,
			PartyID:      partyID,
			Recruitments: inputs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, "", recs)
	}
}

func UpdateRecruitment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		target, ok := resolveRecruitmentTarget(w, r, logg)
		if !ok {
			return
		}

		var req updateRecruitmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.UpdateRecruitment(r.Context(), lifecycle.UpdateRecruitmentInput{
			ActorID:       target.actorID,
			PartyID:       target.partyID,
			RecruitmentID: target.recruitmentID,
			Fields:        req.toInput(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// DeleteRecruitment closes a posting; its open applications are rejected.
func DeleteRecruitment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		target, ok := resolveRecruitmentTarget(w, r, logg)
		if !ok {
			return
		}

		if err := svc.DeleteRecruitment(r.Context(), lifecycle.RecruitmentCommand{
			ActorID:       target.actorID,
			PartyID:       target.partyID,
			RecruitmentID: target.recruitmentID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"recruitment_id": target.recruitmentID, "deleted": true})
	}
}

func BatchDeleteRecruitments(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.BatchDeleteRecruitments(r.Context(), lifecycle.BatchDeleteRecruitmentsInput{
			ActorID:        userID,
			PartyID:        partyID,
			RecruitmentIDs: req.IDs,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"recruitment_ids": req.IDs, "deleted": true})
	}
}

func GetRecruitment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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
		recruitmentID, err := validators.PathID(r, paramRecruitmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.GetRecruitment(r.Context(), partyID, recruitmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// FindRecruitment serves a posting addressed by its id alone.
func FindRecruitment(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errServiceUnavailable)
			return
		}
		recruitmentID, err := validators.PathID(r, paramRecruitmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.FindRecruitment(r.Context(), recruitmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// ListRecruitments returns the open postings of a party, optionally filtered by position category.
func ListRecruitments(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := validators.ParseQueryOrder(r, "order", pagination.OrderDesc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recs, err := svc.ListRecruitments(r.Context(), partyID, recruitments.ListQuery{
			Main:  strings.TrimSpace(r.URL.Query().Get("main")),
			Order: order,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recs)
	}
}
