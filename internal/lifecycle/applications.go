package lifecycle

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/applications"
	"github.com/angelmondragon/partyhub-backend/internal/authority"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

func (s *service) SubmitApplication(ctx context.Context, input SubmitApplicationInput) (dto *applications.ApplicationDTO, err error) {
	defer func(started time.Time) { err = s.observe("submit_application", started, err) }(time.Now())

	if input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.RecruitmentID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recruitment id required")
	}
	if err := input.Application.Validate(); err != nil {
		return nil, err
	}

	var app *models.PartyApplication
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		rec, err := s.recruitments.FindInPartyTx(tx, party.ID, input.RecruitmentID, false)
		if err != nil {
			return err
		}
		member, err := s.memberships.IsMemberTx(tx, party.ID, input.UserID)
		if err != nil {
			return err
		}
		if member {
			return pkgerrors.New(pkgerrors.CodeConflict, "user is already a party member")
		}
		pending, err := s.applications.HasOpenTx(tx, input.UserID, rec.ID)
		if err != nil {
			return err
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "application already pending")
		}

		app, err = s.applications.CreateTx(tx, input.UserID, party.ID, rec.ID, input.Application)
		if err != nil {
			return err
		}
		return s.emitApplication(ctx, tx, enums.EventApplicationSubmitted, buildActor(input.UserID, party.ID, ""), app, &rec.ID)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "application.submitted", map[string]any{
		"party_id":       input.PartyID,
		"recruitment_id": input.RecruitmentID,
		"application_id": app.ID,
		"user_id":        input.UserID,
	})
	return applications.FromModel(app), nil
}

// ApproveApplication admits the candidate at the recruitment's position and takes one
// seat. Status change, admission and seat accounting commit together; when the last
// seat is taken the posting is closed in the same transaction.
func (s *service) ApproveApplication(ctx context.Context, input ApplicationDecisionInput) (result *ApprovalResult, err error) {
	defer func(started time.Time) { err = s.observe("approve_application", started, err) }(time.Now())

	var (
		app    *models.PartyApplication
		member *models.PartyUser
		rec    *models.PartyRecruitment
		closed bool
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionReviewApplications)
		if err != nil {
			return err
		}
		app, err = s.loadApplicationTx(tx, party.ID, input.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status != enums.ApplicationStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "application already decided").
				WithDetails(map[string]any{"status": string(app.Status)})
		}
		if app.PartyRecruitmentID == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "recruitment already closed")
		}
		recruitmentID := *app.PartyRecruitmentID
		locked, err := s.recruitments.FindInPartyTx(tx, party.ID, recruitmentID, true)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "recruitment already closed")
			}
			return err
		}
		already, err := s.memberships.IsMemberTx(tx, party.ID, app.UserID)
		if err != nil {
			return err
		}
		if already {
			return pkgerrors.New(pkgerrors.CodeConflict, "user is already a party member")
		}

		if err := s.applications.TransitionTx(tx, app, enums.ApplicationStatusApproved, actor.UserID, s.now()); err != nil {
			return err
		}
		member, err = s.memberships.AdmitTx(tx, party.ID, app.UserID, locked.PositionID, enums.PartyAuthorityMember)
		if err != nil {
			return err
		}
		rec, closed, err = s.recruitments.IncrementFilledTx(tx, locked.ID)
		if err != nil {
			return err
		}

		ref := buildActor(actor.UserID, party.ID, actor.Authority)
		if err := s.emitApplication(ctx, tx, enums.EventApplicationApproved, ref, app, &recruitmentID); err != nil {
			return err
		}
		if err := s.emitMember(ctx, tx, enums.EventMemberAdmitted, ref, member); err != nil {
			return err
		}
		if closed {
			if err := s.closeRecruitmentsTx(ctx, tx, []models.PartyRecruitment{*rec}, ref); err != nil {
				return err
			}
			app.PartyRecruitmentID = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncSeatsFilled()
	}
	s.info(ctx, "application.approved", map[string]any{
		"party_id":           input.PartyID,
		"application_id":     app.ID,
		"user_id":            input.ActorID,
		"candidate_id":       app.UserID,
		"recruitment_closed": closed,
	})

	result = &ApprovalResult{
		Application:       *applications.FromModel(app),
		PartyUserID:       member.ID,
		RecruitmentClosed: closed,
	}
	if !closed {
		result.Recruitment = recruitments.FromModel(rec)
	}
	return result, nil
}

// RejectApplication marks a pending application REJECTED with no other side effects.
func (s *service) RejectApplication(ctx context.Context, input ApplicationDecisionInput) (dto *applications.ApplicationDTO, err error) {
	defer func(started time.Time) { err = s.observe("reject_application", started, err) }(time.Now())

	var app *models.PartyApplication
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionReviewApplications)
		if err != nil {
			return err
		}
		app, err = s.loadApplicationTx(tx, party.ID, input.ApplicationID)
		if err != nil {
			return err
		}
		if err := s.applications.TransitionTx(tx, app, enums.ApplicationStatusRejected, actor.UserID, s.now()); err != nil {
			return err
		}
		return s.emitApplication(ctx, tx, enums.EventApplicationRejected, buildActor(actor.UserID, party.ID, actor.Authority), app, app.PartyRecruitmentID)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "application.rejected", map[string]any{"party_id": input.PartyID, "application_id": app.ID, "user_id": input.ActorID})
	return applications.FromModel(app), nil
}

// loadApplicationTx locks the application and hides applications of other parties behind NOT_FOUND.
func (s *service) loadApplicationTx(tx *gorm.DB, partyID, applicationID int64) (*models.PartyApplication, error) {
	if applicationID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "application id required")
	}
	app, err := s.applications.FindForUpdateTx(tx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.PartyID != partyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
	}
	return app, nil
}

func (s *service) ListApplications(ctx context.Context, input ListApplicationsInput) (*pagination.Page[applications.ApplicationDTO], error) {
	party, err := s.loadParty(ctx, input.PartyID)
	if err != nil {
		return nil, err
	}
	if err := parties.EnsureReadable(party); err != nil {
		return nil, err
	}
	conn := s.db.DB().WithContext(ctx)
	if _, err := s.authorize(ctx, conn, party.ID, input.ActorID, authority.ActionListApplications); err != nil {
		return nil, err
	}
	if _, err := s.recruitments.FindInPartyTx(conn, party.ID, input.RecruitmentID, false); err != nil {
		return nil, err
	}
	if input.Query.Status != nil && !input.Query.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
			WithDetails(map[string]any{"status": string(*input.Query.Status)})
	}

	page := input.Query.Page.Normalize()
	items, total, err := s.applications.List(ctx, input.RecruitmentID, input.Query)
	if err != nil {
		return nil, err
	}
	return &pagination.Page[applications.ApplicationDTO]{
		Items: items,
		Total: total,
		Page:  page.Page,
		Limit: page.Limit,
	}, nil
}

// GetMyApplication returns the caller's latest application to a recruitment.
func (s *service) GetMyApplication(ctx context.Context, input RecruitmentCommand) (*applications.ApplicationDTO, error) {
	if input.ActorID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	party, err := s.loadParty(ctx, input.PartyID)
	if err != nil {
		return nil, err
	}
	if err := parties.EnsureReadable(party); err != nil {
		return nil, err
	}
	conn := s.db.DB().WithContext(ctx)
	if _, err := s.recruitments.FindInPartyTx(conn, party.ID, input.RecruitmentID, false); err != nil {
		return nil, err
	}
	app, err := s.applications.FindLatestForUser(ctx, input.ActorID, input.RecruitmentID)
	if err != nil {
		return nil, err
	}
	return applications.FromModel(app), nil
}
