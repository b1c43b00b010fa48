package lifecycle

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/authority"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

func (s *service) CreateParty(ctx context.Context, input CreatePartyInput) (dto *parties.PartyDTO, err error) {
	defer func(started time.Time) { err = s.observe("create_party", started, err) }(time.Now())

	if input.FounderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := input.Party.Validate(); err != nil {
		return nil, err
	}

	party := input.Party.ToModel()
	var founder *models.PartyUser
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ensureReference(tx, input.Party.TypeID, input.Party.PositionID); err != nil {
			return err
		}
		if err := s.parties.CreateTx(tx, party); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party")
		}
		admitted, err := s.memberships.AdmitTx(tx, party.ID, input.FounderID, input.Party.PositionID, enums.PartyAuthorityMaster)
		if err != nil {
			return err
		}
		founder = admitted

		actor := buildActor(input.FounderID, party.ID, enums.PartyAuthorityMaster)
		if err := s.emitParty(ctx, tx, enums.EventPartyCreated, actor, party); err != nil {
			return err
		}
		return s.emitMember(ctx, tx, enums.EventMemberAdmitted, actor, founder)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "party.created", map[string]any{"party_id": party.ID, "user_id": input.FounderID})
	dto = parties.FromModel(party)
	dto.MemberCount = 1
	return dto, nil
}

func (s *service) ensureReference(tx *gorm.DB, typeID, positionID int64) error {
	if typeID > 0 {
		ok, err := s.parties.TypeExistsTx(tx, typeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check party type")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown party type").
				WithDetails(map[string]any{"type_id": typeID})
		}
	}
	if positionID > 0 {
		ok, err := s.parties.PositionExistsTx(tx, positionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check position")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown position").
				WithDetails(map[string]any{"position_id": positionID})
		}
	}
	return nil
}

func (s *service) UpdateParty(ctx context.Context, input UpdatePartyInput) (dto *parties.PartyDTO, err error) {
	defer func(started time.Time) { err = s.observe("update_party", started, err) }(time.Now())

	if err := input.Fields.Validate(); err != nil {
		return nil, err
	}

	var (
		party    *models.Party
		replaced *string
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		party, err = s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionUpdateParty)
		if err != nil {
			return err
		}
		if input.Fields.TypeID != nil {
			if err := s.ensureReference(tx, *input.Fields.TypeID, 0); err != nil {
				return err
			}
		}

		replaced = input.Fields.Apply(party)
		if err := s.parties.SaveTx(tx, party); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update party")
		}

		ref := buildActor(actor.UserID, party.ID, actor.Authority)
		if err := s.emitParty(ctx, tx, enums.EventPartyUpdated, ref, party); err != nil {
			return err
		}
		if replaced != nil {
			return s.emitImageReleased(ctx, tx, ref, party.ID, *replaced)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replaced != nil {
		s.releaseImage(ctx, party.ID, *replaced)
	}
	s.info(ctx, "party.updated", map[string]any{"party_id": party.ID, "user_id": input.ActorID})
	return parties.FromModel(party), nil
}

// DeletePartyImage clears the party image; the file is released after commit.
func (s *service) DeletePartyImage(ctx context.Context, input PartyCommand) (dto *parties.PartyDTO, err error) {
	defer func(started time.Time) { err = s.observe("delete_party_image", started, err) }(time.Now())

	var (
		party    *models.Party
		released string
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		party, err = s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionDeletePartyImage)
		if err != nil {
			return err
		}
		if party.Image == nil || *party.Image == "" {
			return pkgerrors.New(pkgerrors.CodeNotFound, "party image not found")
		}

		released = *party.Image
		party.Image = nil
		if err := s.parties.SaveTx(tx, party); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear party image")
		}
		return s.emitImageReleased(ctx, tx, buildActor(actor.UserID, party.ID, actor.Authority), party.ID, released)
	})
	if err != nil {
		return nil, err
	}

	s.releaseImage(ctx, party.ID, released)
	s.info(ctx, "party.image_deleted", map[string]any{"party_id": party.ID, "user_id": input.ActorID})
	return parties.FromModel(party), nil
}

// EndParty archives an active party and closes all of its recruitments.
func (s *service) EndParty(ctx context.Context, input PartyCommand) (dto *parties.PartyDTO, err error) {
	defer func(started time.Time) { err = s.observe("end_party", started, err) }(time.Now())

	var party *models.Party
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		party, err = s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionEndParty)
		if err != nil {
			return err
		}
		ref := buildActor(actor.UserID, party.ID, actor.Authority)
		if err := s.closeAllRecruitmentsTx(ctx, tx, party.ID, ref); err != nil {
			return err
		}
		if err := parties.Archive(party, s.now()); err != nil {
			return err
		}
		if err := s.parties.SaveTx(tx, party); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive party")
		}
		return s.emitParty(ctx, tx, enums.EventPartyArchived, ref, party)
	})
	if err != nil {
		return nil, err
	}

	s.info(ctx, "party.archived", map[string]any{"party_id": party.ID, "user_id": input.ActorID})
	return parties.FromModel(party), nil
}

// DeleteParty soft-deletes an active or archived party. Open recruitments are closed
// first; member rows are kept as history.
func (s *service) DeleteParty(ctx context.Context, input PartyCommand) (err error) {
	defer func(started time.Time) { err = s.observe("delete_party", started, err) }(time.Now())

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureReadable(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionDeleteParty)
		if err != nil {
			return err
		}
		ref := buildActor(actor.UserID, party.ID, actor.Authority)
		if err := s.closeAllRecruitmentsTx(ctx, tx, party.ID, ref); err != nil {
			return err
		}
		if err := parties.MarkDeleted(party, s.now()); err != nil {
			return err
		}
		if err := s.parties.SaveTx(tx, party); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete party")
		}
		return s.emitParty(ctx, tx, enums.EventPartyDeleted, ref, party)
	})
	if err != nil {
		return err
	}

	s.info(ctx, "party.deleted", map[string]any{"party_id": input.PartyID, "user_id": input.ActorID})
	return nil
}

// GetParty returns the party detail; deleted parties are GONE.
func (s *service) GetParty(ctx context.Context, partyID int64) (*parties.PartyDTO, error) {
	if partyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	dto, err := s.parties.Detail(ctx, partyID)
	if err != nil {
		return nil, mapPartyError(err)
	}
	if dto.Status == enums.PartyStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeGone, "party already deleted")
	}
	return dto, nil
}

func (s *service) ListParties(ctx context.Context, query parties.ListQuery) (*pagination.Page[parties.PartyDTO], error) {
	q, err := query.Normalize()
	if err != nil {
		return nil, err
	}
	items, total, err := s.parties.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parties")
	}
	return &pagination.Page[parties.PartyDTO]{
		Items: items,
		Total: total,
		Page:  q.Page.Page,
		Limit: q.Page.Limit,
	}, nil
}

func (s *service) ListPartyTypes(ctx context.Context) ([]parties.PartyTypeDTO, error) {
	types, err := s.parties.ListTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list party types")
	}
	return types, nil
}

// closeAllRecruitmentsTx closes every open posting of a party being ended or deleted.
func (s *service) closeAllRecruitmentsTx(ctx context.Context, tx *gorm.DB, partyID int64, actor *outbox.ActorRef) error {
	recs, err := s.recruitments.ListByPartyTx(tx, partyID)
	if err != nil {
		return err
	}
	return s.closeRecruitmentsTx(ctx, tx, recs, actor)
}
