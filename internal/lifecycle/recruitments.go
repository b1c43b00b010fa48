package lifecycle

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/authority"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
)

func (s *service) CreateRecruitment(ctx context.Context, input CreateRecruitmentInput) (dto *recruitments.RecruitmentDTO, err error) {
	defer func(started time.Time) { err = s.observe("create_recruitment", started, err) }(time.Now())

	opened, err := s.openRecruitments(ctx, input.ActorID, input.PartyID, []recruitments.OpenInput{input.Recruitment})
	if err != nil {
		return nil, err
	}
	return &opened[0], nil
}

// CreateRecruitments opens up to MaxBatchOpen postings at once; either all open or none.
func (s *service) CreateRecruitments(ctx context.Context, input CreateRecruitmentsInput) (out []recruitments.RecruitmentDTO, err error) {
	defer func(started time.Time) { err = s.observe("create_recruitments", started, err) }(time.Now())

	return s.openRecruitments(ctx, input.ActorID, input.PartyID, input.Recruitments)
}

func (s *service) openRecruitments(ctx context.Context, actorID, partyID int64, inputs []recruitments.OpenInput) ([]recruitments.RecruitmentDTO, error) {
	if len(inputs) == 0 || len(inputs) > recruitments.MaxBatchOpen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid number of recruitments").
			WithDetails(map[string]any{"min": 1, "max": recruitments.MaxBatchOpen, "got": len(inputs)})
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			if typed := pkgerrors.As(err); typed != nil && len(inputs) > 1 {
				return nil, pkgerrors.New(typed.Code(), typed.Message()).
					WithDetails(map[string]any{"index": i, "fields": typed.Details()})
			}
			return nil, err
		}
	}

	out := make([]recruitments.RecruitmentDTO, 0, len(inputs))
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, partyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, actorID, authority.ActionManageRecruitments)
		if err != nil {
			return err
		}
		ref := buildActor(actor.UserID, party.ID, actor.Authority)
		for _, in := range inputs {
			if err := s.ensureReference(tx, 0, in.PositionID); err != nil {
				return err
			}
			rec, err := s.recruitments.OpenTx(tx, party.ID, in)
			if err != nil {
				return err
			}
			if err := s.emitRecruitment(ctx, tx, enums.EventRecruitmentOpened, ref, rec); err != nil {
				return err
			}
			out = append(out, *recruitments.FromModel(rec))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "recruitment.opened", map[string]any{"party_id": partyID, "user_id": actorID, "count": len(out)})
	return out, nil
}

func (s *service) UpdateRecruitment(ctx context.Context, input UpdateRecruitmentInput) (dto *recruitments.RecruitmentDTO, err error) {
	defer func(started time.Time) { err = s.observe("update_recruitment", started, err) }(time.Now())

	if err := input.Fields.Validate(); err != nil {
		return nil, err
	}

	var rec *models.PartyRecruitment
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionManageRecruitments)
		if err != nil {
			return err
		}
		rec, err = s.recruitments.FindInPartyTx(tx, party.ID, input.RecruitmentID, true)
		if err != nil {
			return err
		}
		if input.Fields.PositionID != nil {
			if err := s.ensureReference(tx, 0, *input.Fields.PositionID); err != nil {
				return err
			}
		}
		if err := s.recruitments.UpdateTx(tx, rec, input.Fields); err != nil {
			return err
		}
		return s.emitRecruitment(ctx, tx, enums.EventRecruitmentUpdated, buildActor(actor.UserID, party.ID, actor.Authority), rec)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "recruitment.updated", map[string]any{"party_id": input.PartyID, "recruitment_id": rec.ID})
	return recruitments.FromModel(rec), nil
}

func (s *service) DeleteRecruitment(ctx context.Context, input RecruitmentCommand) (err error) {
	defer func(started time.Time) { err = s.observe("delete_recruitment", started, err) }(time.Now())

	return s.deleteRecruitments(ctx, input.ActorID, input.PartyID, []int64{input.RecruitmentID})
}

// BatchDeleteRecruitments closes several postings. Any missing or foreign id fails the whole batch.
func (s *service) BatchDeleteRecruitments(ctx context.Context, input BatchDeleteRecruitmentsInput) (err error) {
	defer func(started time.Time) { err = s.observe("batch_delete_recruitments", started, err) }(time.Now())

	return s.deleteRecruitments(ctx, input.ActorID, input.PartyID, input.RecruitmentIDs)
}

func (s *service) deleteRecruitments(ctx context.Context, actorID, partyID int64, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "recruitment ids are required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, partyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, actorID, authority.ActionManageRecruitments)
		if err != nil {
			return err
		}
		recs, err := s.recruitments.FindManyInPartyTx(tx, party.ID, ids)
		if err != nil {
			return err
		}
		return s.closeRecruitmentsTx(ctx, tx, recs, buildActor(actor.UserID, party.ID, actor.Authority))
	})
	if err != nil {
		return err
	}

	s.info(ctx, "recruitment.closed", map[string]any{"party_id": partyID, "user_id": actorID, "recruitment_ids": ids})
	return nil
}

// closeRecruitmentsTx runs the closure sequence for each posting: reject the applications
// still open, detach every application so it stays on record under the party, then
// delete the posting row.
func (s *service) closeRecruitmentsTx(ctx context.Context, tx *gorm.DB, recs []models.PartyRecruitment, actor *outbox.ActorRef) error {
	if len(recs) == 0 {
		return nil
	}
	var decidedBy int64
	if actor != nil {
		decidedBy = actor.UserID
	}
	now := s.now()

	ids := make([]int64, 0, len(recs))
	for i := range recs {
		rec := recs[i]
		rejected, err := s.applications.RejectOpenForRecruitmentTx(tx, rec.ID, decidedBy, now)
		if err != nil {
			return err
		}
		for j := range rejected {
			if err := s.emitApplication(ctx, tx, enums.EventApplicationRejected, actor, &rejected[j], &rec.ID); err != nil {
				return err
			}
		}
		ids = append(ids, rec.ID)
	}

	if err := s.applications.DetachRecruitmentTx(tx, ids...); err != nil {
		return err
	}
	if err := s.recruitments.DeleteTx(tx, ids...); err != nil {
		return err
	}
	for i := range recs {
		if err := s.emitRecruitment(ctx, tx, enums.EventRecruitmentClosed, actor, &recs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) GetRecruitment(ctx context.Context, partyID, recruitmentID int64) (*recruitments.RecruitmentDTO, error) {
	if recruitmentID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recruitment id required")
	}
	party, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := parties.EnsureReadable(party); err != nil {
		return nil, err
	}
	return s.recruitments.Detail(ctx, party.ID, recruitmentID)
}

// FindRecruitment resolves a posting by its own id; the owning party must still be readable.
func (s *service) FindRecruitment(ctx context.Context, recruitmentID int64) (*recruitments.RecruitmentDTO, error) {
	if recruitmentID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recruitment id required")
	}
	partyID, err := s.recruitments.PartyOf(ctx, recruitmentID)
	if err != nil {
		return nil, err
	}
	return s.GetRecruitment(ctx, partyID, recruitmentID)
}

// ListRecruitments returns a party's open postings; an empty result is not an error.
func (s *service) ListRecruitments(ctx context.Context, partyID int64, query recruitments.ListQuery) ([]recruitments.RecruitmentDTO, error) {
	party, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := parties.EnsureReadable(party); err != nil {
		return nil, err
	}
	return s.recruitments.ListByParty(ctx, party.ID, query)
}
