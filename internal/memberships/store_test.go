package memberships

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
	store     *Store
	partyID   int64
	backendID int64
	designID  int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	typeID, backendID, designID := dbtest.SeedReference(t, conn)
	party := models.Party{PartyTypeID: typeID, Title: "p", Content: "c", Status: enums.PartyStatusActive}
	require.NoError(t, conn.Create(&party).Error)
	return fixture{conn: conn, store: NewStore(conn), partyID: party.ID, backendID: backendID, designID: designID}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error %v", err)
}

func TestAdmitIsUniquePerUserAndParty(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AdmitTx(f.conn, f.partyID, 7, f.backendID, enums.PartyAuthorityMember)
	require.NoError(t, err)

	_, err = f.store.AdmitTx(f.conn, f.partyID, 7, f.designID, enums.PartyAuthorityMember)
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = f.store.AdmitTx(f.conn, f.partyID, 8, f.backendID, "owner")
	requireCode(t, err, pkgerrors.CodeValidation)

	ok, err := f.store.IsMemberTx(f.conn, f.partyID, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveRefusesMaster(t *testing.T) {
	f := newFixture(t)
	master, err := f.store.AdmitTx(f.conn, f.partyID, 1, f.backendID, enums.PartyAuthorityMaster)
	require.NoError(t, err)
	member, err := f.store.AdmitTx(f.conn, f.partyID, 2, f.backendID, enums.PartyAuthorityMember)
	require.NoError(t, err)

	requireCode(t, f.store.RemoveTx(f.conn, *master, *member), pkgerrors.CodeForbidden)

	var count int64
	require.NoError(t, f.conn.Model(&models.PartyUser{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	require.NoError(t, f.store.RemoveTx(f.conn, *member))
	_, err = f.store.FindByUserTx(f.conn, f.partyID, 2)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestFindManyInPartyRejectsForeignIDs(t *testing.T) {
	f := newFixture(t)
	member, err := f.store.AdmitTx(f.conn, f.partyID, 2, f.backendID, enums.PartyAuthorityMember)
	require.NoError(t, err)

	_, err = f.store.FindManyInPartyTx(f.conn, f.partyID+1, []int64{member.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)

	rows, err := f.store.FindManyInPartyTx(f.conn, f.partyID, []int64{member.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestDelegateMasterSwapsAuthority(t *testing.T) {
	f := newFixture(t)
	master, err := f.store.AdmitTx(f.conn, f.partyID, 1, f.backendID, enums.PartyAuthorityMaster)
	require.NoError(t, err)
	member, err := f.store.AdmitTx(f.conn, f.partyID, 2, f.backendID, enums.PartyAuthorityMember)
	require.NoError(t, err)

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return f.store.DelegateMasterTx(tx, master, member)
	}))

	oldMaster, err := f.store.FindByUserTx(f.conn, f.partyID, 1)
	require.NoError(t, err)
	newMaster, err := f.store.FindByUserTx(f.conn, f.partyID, 2)
	require.NoError(t, err)
	assert.Equal(t, enums.PartyAuthorityEditor, oldMaster.Authority)
	assert.Equal(t, enums.PartyAuthorityMaster, newMaster.Authority)

	masters, err := f.store.CountMastersTx(f.conn, f.partyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), masters)

	stale := models.PartyUser{ID: oldMaster.ID, PartyID: f.partyID, Authority: enums.PartyAuthorityMaster}
	err = f.conn.Transaction(func(tx *gorm.DB) error {
		return f.store.DelegateMasterTx(tx, &stale, newMaster)
	})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestListByPartySortsByAuthority(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AdmitTx(f.conn, f.partyID, 3, f.designID, enums.PartyAuthorityMember)
	require.NoError(t, err)
	_, err = f.store.AdmitTx(f.conn, f.partyID, 1, f.backendID, enums.PartyAuthorityMaster)
	require.NoError(t, err)
	_, err = f.store.AdmitTx(f.conn, f.partyID, 2, f.backendID, enums.PartyAuthorityEditor)
	require.NoError(t, err)

	q, err := ListQuery{Sort: SortAuthority}.Normalize()
	require.NoError(t, err)
	roster, err := f.store.ListByParty(context.Background(), f.partyID, q)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, []enums.PartyAuthority{enums.PartyAuthorityMaster, enums.PartyAuthorityEditor, enums.PartyAuthorityMember},
		[]enums.PartyAuthority{roster[0].Authority, roster[1].Authority, roster[2].Authority})

	q, err = ListQuery{Sort: SortAuthority, Order: pagination.OrderDesc}.Normalize()
	require.NoError(t, err)
	reversed, err := f.store.ListByParty(context.Background(), f.partyID, q)
	require.NoError(t, err)
	require.Len(t, reversed, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{reversed[0].UserID, reversed[1].UserID, reversed[2].UserID})

	q, err = ListQuery{Main: "designer", Order: pagination.OrderDesc}.Normalize()
	require.NoError(t, err)
	designers, err := f.store.ListByParty(context.Background(), f.partyID, q)
	require.NoError(t, err)
	require.Len(t, designers, 1)
	assert.Equal(t, int64(3), designers[0].UserID)
	assert.Equal(t, "product", designers[0].Sub)

	_, err = ListQuery{Sort: "email"}.Normalize()
	requireCode(t, err, pkgerrors.CodeValidation)
}
