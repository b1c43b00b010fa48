package lifecycle

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/authority"
	"github.com/angelmondragon/partyhub-backend/internal/memberships"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
)

func (s *service) RemoveMember(ctx context.Context, input RemoveMemberInput) (err error) {
	defer func(started time.Time) { err = s.observe("remove_member", started, err) }(time.Now())

	return s.removeMembers(ctx, input.ActorID, input.PartyID, []int64{input.PartyUserID})
}

// BatchRemoveMembers expels several members at once. A MASTER among the targets, or an
// id outside the party, fails the whole batch.
func (s *service) BatchRemoveMembers(ctx context.Context, input BatchRemoveMembersInput) (err error) {
	defer func(started time.Time) { err = s.observe("batch_remove_members", started, err) }(time.Now())

	return s.removeMembers(ctx, input.ActorID, input.PartyID, input.PartyUserIDs)
}

func (s *service) removeMembers(ctx context.Context, actorID, partyID int64, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "party user ids are required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, partyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, actorID, authority.ActionRemoveMember)
		if err != nil {
			return err
		}
		targets, err := s.memberships.FindManyInPartyTx(tx, party.ID, ids)
		if err != nil {
			return err
		}
		for _, target := range targets {
			if err := memberships.EnsureRemovable(target); err != nil {
				return err
			}
		}
		if err := s.memberships.RemoveTx(tx, targets...); err != nil {
			return err
		}
		ref := buildActor(actor.UserID, party.ID, actor.Authority)
		for i := range targets {
			if err := s.emitMember(ctx, tx, enums.EventMemberRemoved, ref, &targets[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.info(ctx, "member.removed", map[string]any{"party_id": partyID, "user_id": actorID, "party_user_ids": ids})
	return nil
}

// DelegateMaster swaps authority in one transaction: the current MASTER becomes EDITOR
// and the target member becomes MASTER.
func (s *service) DelegateMaster(ctx context.Context, input DelegateMasterInput) (err error) {
	defer func(started time.Time) { err = s.observe("delegate_master", started, err) }(time.Now())

	if input.NewMasterUserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new master user id required")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		current, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionDelegateMaster)
		if err != nil {
			return err
		}
		next, err := s.memberships.FindByUserTx(tx, party.ID, input.NewMasterUserID)
		if err != nil {
			return err
		}
		if err := s.memberships.DelegateMasterTx(tx, current, next); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMasterDelegated,
			AggregateType: enums.AggregateParty,
			AggregateID:   party.ID,
			PartyID:       party.ID,
			Actor:         buildActor(input.ActorID, party.ID, enums.PartyAuthorityMaster),
			Data: outbox.MasterDelegatedEvent{
				PartyID:        party.ID,
				PreviousUserID: current.UserID,
				NewUserID:      next.UserID,
			},
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return err
	}

	s.info(ctx, "member.master_delegated", map[string]any{"party_id": input.PartyID, "user_id": input.ActorID, "new_master_id": input.NewMasterUserID})
	return nil
}

// ChangeMemberAuthority moves a member between MEMBER and EDITOR. MASTER is only
// granted through delegation.
func (s *service) ChangeMemberAuthority(ctx context.Context, input ChangeAuthorityInput) (err error) {
	defer func(started time.Time) { err = s.observe("change_member_authority", started, err) }(time.Now())

	if input.Authority != enums.PartyAuthorityEditor && input.Authority != enums.PartyAuthorityMember {
		return pkgerrors.New(pkgerrors.CodeValidation, "authority must be editor or member").
			WithDetails(map[string]any{"authority": string(input.Authority)})
	}
	if input.PartyUserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "party user id required")
	}

	changed := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		actor, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionChangeAuthority)
		if err != nil {
			return err
		}
		targets, err := s.memberships.FindManyInPartyTx(tx, party.ID, []int64{input.PartyUserID})
		if err != nil {
			return err
		}
		target := targets[0]
		if target.Authority == enums.PartyAuthorityMaster {
			return pkgerrors.New(pkgerrors.CodeForbidden, "master authority changes only through delegation")
		}
		if target.Authority == input.Authority {
			return nil
		}
		if err := s.memberships.ChangeAuthorityTx(tx, target.ID, target.Authority, input.Authority); err != nil {
			return err
		}
		target.Authority = input.Authority
		changed = true
		return s.emitMember(ctx, tx, enums.EventMemberAuthorityChanged, buildActor(actor.UserID, party.ID, actor.Authority), &target)
	})
	if err != nil {
		return err
	}

	if changed {
		s.info(ctx, "member.authority_changed", map[string]any{
			"party_id":      input.PartyID,
			"user_id":       input.ActorID,
			"party_user_id": input.PartyUserID,
			"authority":     string(input.Authority),
		})
	}
	return nil
}

// LeaveParty removes the caller's own membership. The MASTER must delegate first.
func (s *service) LeaveParty(ctx context.Context, input PartyCommand) (err error) {
	defer func(started time.Time) { err = s.observe("leave_party", started, err) }(time.Now())

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		party, err := s.lockParty(tx, input.PartyID)
		if err != nil {
			return err
		}
		if err := parties.EnsureActive(party); err != nil {
			return err
		}
		member, err := s.authorize(ctx, tx, party.ID, input.ActorID, authority.ActionLeaveParty)
		if err != nil {
			return err
		}
		if member.Authority == enums.PartyAuthorityMaster {
			return pkgerrors.New(pkgerrors.CodeForbidden, "party master must delegate before leaving")
		}
		if err := s.memberships.RemoveTx(tx, *member); err != nil {
			return err
		}
		return s.emitMember(ctx, tx, enums.EventMemberRemoved, buildActor(member.UserID, party.ID, member.Authority), member)
	})
	if err != nil {
		return err
	}

	s.info(ctx, "member.left", map[string]any{"party_id": input.PartyID, "user_id": input.ActorID})
	return nil
}

func (s *service) ListMembers(ctx context.Context, partyID int64, query memberships.ListQuery) ([]memberships.MemberDTO, error) {
	q, err := query.Normalize()
	if err != nil {
		return nil, err
	}
	party, err := s.loadParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := parties.EnsureReadable(party); err != nil {
		return nil, err
	}
	return s.memberships.ListByParty(ctx, party.ID, q)
}
