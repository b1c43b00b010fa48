package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
)

func TestEmitStoresEnvelopeInsideTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventMemberAdmitted,
			AggregateType: enums.AggregatePartyUser,
			AggregateID:   7,
			PartyID:       3,
			Actor:         &ActorRef{UserID: 1},
			Data:          MemberEvent{PartyID: 3, PartyUserID: 7, UserID: 9, Authority: enums.PartyAuthorityMember},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByParty(nil, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, rows[0].EventID.String(), envelope.EventID)
	assert.Equal(t, int64(1), envelope.Actor.UserID)
	assert.Equal(t, enums.EventMemberAdmitted, envelope.Type)
	assert.Equal(t, int64(3), envelope.PartyID)
	assert.Equal(t, int64(7), rows[0].AggregateID)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPartyCreated,
			AggregateType: enums.AggregateParty,
			AggregateID:   11,
			PartyID:       11,
			Data:          PartyEvent{PartyID: 11, Status: enums.PartyStatusActive},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRequiresTransactionAndValidEvent(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.ErrorIs(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventPartyCreated}), errTxRequired)

	conn := dbtest.Open(t)
	valid := DomainEvent{EventType: enums.EventPartyCreated, AggregateType: enums.AggregateParty, AggregateID: 1, PartyID: 1}

	unknownType := valid
	unknownType.EventType = "nope"
	require.Error(t, svc.Emit(context.Background(), conn, unknownType))

	noParty := valid
	noParty.PartyID = 0
	require.ErrorContains(t, svc.Emit(context.Background(), conn, noParty), "without party id")
}

func TestRepositoryRelayLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventPartyUpdated,
				AggregateType: enums.AggregateParty,
				AggregateID:   i,
				PartyID:       i,
				Data:          PartyEvent{PartyID: i, Status: enums.PartyStatusActive},
			})
		}))
	}

	claimed, err := repo.ClaimBatch(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	assert.Less(t, claimed[0].ID, claimed[1].ID)

	require.NoError(t, repo.MarkPublished(conn, time.Now(), claimed[0].ID))
	require.NoError(t, repo.RecordFailure(conn, claimed[1].ID, errors.New(strings.Repeat("x", 2*maxErrorLength))))
	require.NoError(t, repo.Park(conn, claimed[2].ID, errors.New("bad payload"), 3))

	pending, err := repo.ClaimBatch(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, claimed[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Len(t, *pending[0].LastError, maxErrorLength)
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewEventRegistry("party-events")
	require.NoError(t, err)

	data, _ := json.Marshal(ApplicationEvent{PartyID: 1, ApplicationID: 2, UserID: 3, Status: enums.ApplicationStatusApproved})
	payload, _ := json.Marshal(PayloadEnvelope{Version: 1, EventID: "evt", Data: data})

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventApplicationApproved,
		AggregateType: enums.AggregateApplication,
		Payload:       payload,
	})
	require.NoError(t, err)
	assert.Equal(t, "party-events", resolved.Descriptor.Topic)
	event, ok := resolved.Payload.(*ApplicationEvent)
	require.True(t, ok)
	assert.Equal(t, int64(2), event.ApplicationID)

	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventApplicationApproved,
		AggregateType: enums.AggregateParty,
		Payload:       payload,
	})
	var nonRetry NonRetryableError
	require.ErrorAs(t, err, &nonRetry)

	_, err = NewEventRegistry(" ")
	require.Error(t, err)
}
