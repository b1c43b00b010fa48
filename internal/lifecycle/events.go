package lifecycle

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
)

func buildActor(userID, partyID int64, role enums.PartyAuthority) *outbox.ActorRef {
	if userID <= 0 {
		return nil
	}
	pid := partyID
	return &outbox.ActorRef{UserID: userID, PartyID: &pid, Authority: string(role)}
}

func (s *service) emitParty(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor *outbox.ActorRef, party *models.Party) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateParty,
		AggregateID:   party.ID,
		PartyID:       party.ID,
		Actor:         actor,
		Data: outbox.PartyEvent{
			PartyID: party.ID,
			Status:  party.Status,
			Title:   party.Title,
		},
		OccurredAt: s.now(),
	})
}

func (s *service) emitImageReleased(ctx context.Context, tx *gorm.DB, actor *outbox.ActorRef, partyID int64, image string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPartyImageReleased,
		AggregateType: enums.AggregateParty,
		AggregateID:   partyID,
		PartyID:       partyID,
		Actor:         actor,
		Data:          outbox.PartyImageReleasedEvent{PartyID: partyID, Image: image},
		OccurredAt:    s.now(),
	})
}

func (s *service) emitRecruitment(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor *outbox.ActorRef, rec *models.PartyRecruitment) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRecruitment,
		AggregateID:   rec.ID,
		PartyID:       rec.PartyID,
		Actor:         actor,
		Data: outbox.RecruitmentEvent{
			PartyID:         rec.PartyID,
			RecruitmentID:   rec.ID,
			PositionID:      rec.PositionID,
			RecruitingCount: rec.RecruitingCount,
			RecruitedCount:  rec.RecruitedCount,
		},
		OccurredAt: s.now(),
	})
}

func (s *service) emitApplication(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor *outbox.ActorRef, app *models.PartyApplication, recruitmentID *int64) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateApplication,
		AggregateID:   app.ID,
		PartyID:       app.PartyID,
		Actor:         actor,
		Data: outbox.ApplicationEvent{
			PartyID:       app.PartyID,
			RecruitmentID: recruitmentID,
			ApplicationID: app.ID,
			UserID:        app.UserID,
			Status:        app.Status,
		},
		OccurredAt: s.now(),
	})
}

func (s *service) emitMember(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor *outbox.ActorRef, member *models.PartyUser) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePartyUser,
		AggregateID:   member.ID,
		PartyID:       member.PartyID,
		Actor:         actor,
		Data: outbox.MemberEvent{
			PartyID:     member.PartyID,
			PartyUserID: member.ID,
			UserID:      member.UserID,
			Authority:   member.Authority,
		},
		OccurredAt: s.now(),
	})
}
