package recruitments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/pagination"
)

type fixture struct {
	conn      *gorm.DB
	ledger    *Ledger
	partyID   int64
	backendID int64
	designID  int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	typeID, backendID, designID := dbtest.SeedReference(t, conn)
	party := models.Party{PartyTypeID: typeID, Title: "hack night", Content: "c", Status: enums.PartyStatusActive}
	require.NoError(t, conn.Create(&party).Error)
	return fixture{conn: conn, ledger: NewLedger(conn), partyID: party.ID, backendID: backendID, designID: designID}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error %v", err)
}

func TestOpenValidatesCapacity(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: "c", RecruitingCount: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	rec, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: " need help ", RecruitingCount: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.RecruitedCount)
	assert.Equal(t, "need help", rec.Content)
}

func TestIncrementFilledReportsClosureAndRejectsOverflow(t *testing.T) {
	f := newFixture(t)
	rec, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: "c", RecruitingCount: 2})
	require.NoError(t, err)

	current, closed, err := f.ledger.IncrementFilledTx(f.conn, rec.ID)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, 1, current.RecruitedCount)

	current, closed, err = f.ledger.IncrementFilledTx(f.conn, rec.ID)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, 2, current.RecruitedCount)

	_, _, err = f.ledger.IncrementFilledTx(f.conn, rec.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	var stored models.PartyRecruitment
	require.NoError(t, f.conn.First(&stored, rec.ID).Error)
	assert.Equal(t, 2, stored.RecruitedCount, "recruited count must never exceed capacity")
}

func TestFindInPartyRejectsForeignRecruitment(t *testing.T) {
	f := newFixture(t)
	rec, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: "c", RecruitingCount: 1})
	require.NoError(t, err)

	_, err = f.ledger.FindInPartyTx(f.conn, f.partyID+1, rec.ID, false)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.ledger.FindInPartyTx(f.conn, f.partyID, rec.ID+99, true)
	requireCode(t, err, pkgerrors.CodeNotFound)

	got, err := f.ledger.FindInPartyTx(f.conn, f.partyID, rec.ID, true)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestFindManyReportsMissingIDs(t *testing.T) {
	f := newFixture(t)
	rec, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: "c", RecruitingCount: 1})
	require.NoError(t, err)

	_, err = f.ledger.FindManyInPartyTx(f.conn, f.partyID, []int64{rec.ID, 404})
	requireCode(t, err, pkgerrors.CodeNotFound)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, []int64{404}, details["missing_ids"])

	rows, err := f.ledger.FindManyInPartyTx(f.conn, f.partyID, []int64{rec.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUpdateRejectsCapacityAtOrBelowFilled(t *testing.T) {
	f := newFixture(t)
	rec, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: "c", RecruitingCount: 3})
	require.NoError(t, err)
	_, _, err = f.ledger.IncrementFilledTx(f.conn, rec.ID)
	require.NoError(t, err)

	loaded, err := f.ledger.FindInPartyTx(f.conn, f.partyID, rec.ID, true)
	require.NoError(t, err)
	one := 1
	requireCode(t, f.ledger.UpdateTx(f.conn, loaded, UpdateInput{RecruitingCount: &one}), pkgerrors.CodeConflict)

	five := 5
	content := "updated"
	require.NoError(t, f.ledger.UpdateTx(f.conn, loaded, UpdateInput{RecruitingCount: &five, Content: &content, PositionID: &f.designID}))

	detail, err := f.ledger.Detail(context.Background(), f.partyID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.RecruitingCount)
	assert.Equal(t, "designer", detail.Main)
	assert.Equal(t, "updated", detail.Content)
	assert.Equal(t, "hack night", detail.PartyTitle)
}

func TestListByPartyFiltersByMain(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.backendID, Content: "backend", RecruitingCount: 1})
	require.NoError(t, err)
	_, err = f.ledger.OpenTx(f.conn, f.partyID, OpenInput{PositionID: f.designID, Content: "design", RecruitingCount: 1})
	require.NoError(t, err)

	all, err := f.ledger.ListByParty(context.Background(), f.partyID, ListQuery{Order: pagination.OrderAsc})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "backend", all[0].Content)

	designers, err := f.ledger.ListByParty(context.Background(), f.partyID, ListQuery{Main: "designer"})
	require.NoError(t, err)
	require.Len(t, designers, 1)
	assert.Equal(t, "design", designers[0].Content)

	require.NoError(t, f.ledger.DeleteTx(f.conn, all[0].ID, all[1].ID))
	empty, err := f.ledger.ListByParty(context.Background(), f.partyID, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
