package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/applications"
	"github.com/angelmondragon/partyhub-backend/internal/memberships"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	dbpkg "github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
)

const (
	userA int64 = 101
	userB int64 = 102
	userC int64 = 103
	userD int64 = 104
)

type releasedImage struct {
	ref          string
	partyImage   *string
	partyVisible bool
}

type stubImages struct {
	mu       sync.Mutex
	conn     *gorm.DB
	partyID  int64
	released []releasedImage
	err      error
}

// Release reads the party row back so tests can see what was committed when the file went away.
func (s *stubImages) Release(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := releasedImage{ref: ref}
	var party models.Party
	if err := s.conn.WithContext(ctx).Where("id = ?", s.partyID).First(&party).Error; err == nil {
		entry.partyImage = party.Image
		entry.partyVisible = true
	}
	s.released = append(s.released, entry)
	return s.err
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes map[string][]error
	seats    int
}

func (r *stubRecorder) ObserveCommand(command string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string][]error{}
	}
	r.outcomes[command] = append(r.outcomes[command], err)
}

func (r *stubRecorder) IncSeatsFilled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats++
}

type engineFixture struct {
	conn      *gorm.DB
	svc       Service
	images    *stubImages
	metrics   *stubRecorder
	typeID    int64
	backendID int64
	designID  int64
}

func newEngine(t *testing.T) *engineFixture {
	t.Helper()
	conn := dbtest.Open(t)
	typeID, backendID, designID := dbtest.SeedReference(t, conn)

	images := &stubImages{conn: conn}
	metrics := &stubRecorder{}
	svc, err := NewService(ServiceParams{
		DB:           dbpkg.Wrap(conn),
		Parties:      parties.NewRepository(conn),
		Recruitments: recruitments.NewLedger(conn),
		Applications: applications.NewRepository(conn),
		Memberships:  memberships.NewStore(conn),
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		Images:       images,
		Metrics:      metrics,
	})
	require.NoError(t, err)
	return &engineFixture{
		conn:      conn,
		svc:       svc,
		images:    images,
		metrics:   metrics,
		typeID:    typeID,
		backendID: backendID,
		designID:  designID,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error %v", err)
}

func strPtr(v string) *string { return &v }

func (f *engineFixture) createParty(t *testing.T, founder int64, image *string) *parties.PartyDTO {
	t.Helper()
	party, err := f.svc.CreateParty(context.Background(), CreatePartyInput{
		FounderID: founder,
		Party: parties.CreatePartyInput{
			TypeID:     f.typeID,
			Title:      "weekend hack",
			Content:    "building a board game tracker",
			Image:      image,
			PositionID: f.backendID,
		},
	})
	require.NoError(t, err)
	f.images.partyID = party.ID
	return party
}

func (f *engineFixture) openRecruitment(t *testing.T, actor, partyID int64, capacity int) *recruitments.RecruitmentDTO {
	t.Helper()
	rec, err := f.svc.CreateRecruitment(context.Background(), CreateRecruitmentInput{
		ActorID: actor,
		PartyID: partyID,
		Recruitment: recruitments.OpenInput{
			PositionID:      f.designID,
			Content:         "need a designer",
			RecruitingCount: capacity,
		},
	})
	require.NoError(t, err)
	return rec
}

func (f *engineFixture) apply(t *testing.T, user, partyID, recruitmentID int64) *applications.ApplicationDTO {
	t.Helper()
	app, err := f.svc.SubmitApplication(context.Background(), SubmitApplicationInput{
		UserID:        user,
		PartyID:       partyID,
		RecruitmentID: recruitmentID,
		Application:   applications.SubmitInput{Message: "I would like to join"},
	})
	require.NoError(t, err)
	return app
}

func (f *engineFixture) member(t *testing.T, partyID, userID int64) *models.PartyUser {
	t.Helper()
	var row models.PartyUser
	err := f.conn.Where("party_id = ? AND user_id = ?", partyID, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &row
}

func (f *engineFixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreatePartyMakesFounderMaster(t *testing.T) {
	f := newEngine(t)
	party := f.createParty(t, userA, nil)

	assert.Equal(t, enums.PartyStatusActive, party.Status)
	assert.EqualValues(t, 1, party.MemberCount)

	master := f.member(t, party.ID, userA)
	require.NotNil(t, master)
	assert.Equal(t, enums.PartyAuthorityMaster, master.Authority)
	assert.Equal(t, f.backendID, master.PositionID)

	assert.EqualValues(t, 1, f.countEvents(t, enums.EventPartyCreated))
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventMemberAdmitted))
}

func TestCreatePartyRejectsUnknownReference(t *testing.T) {
	f := newEngine(t)
	_, err := f.svc.CreateParty(context.Background(), CreatePartyInput{
		FounderID: userA,
		Party: parties.CreatePartyInput{
			TypeID:     999,
			Title:      "t",
			Content:    "c",
			PositionID: f.backendID,
		},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, f.conn.Model(&models.Party{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecruitmentScenarioFillsAndAutoCloses(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 2)

	appB := f.apply(t, userB, party.ID, rec.ID)
	res, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: appB.ID})
	require.NoError(t, err)
	assert.False(t, res.RecruitmentClosed)
	require.NotNil(t, res.Recruitment)
	assert.Equal(t, 1, res.Recruitment.RecruitedCount)
	assert.Equal(t, enums.ApplicationStatusApproved, res.Application.Status)

	detail, err := f.svc.GetRecruitment(ctx, party.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.RecruitedCount)
	byID, err := f.svc.FindRecruitment(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, party.ID, byID.PartyID)
	assert.Equal(t, 1, byID.RecruitedCount)

	appC := f.apply(t, userC, party.ID, rec.ID)
	appD := f.apply(t, userD, party.ID, rec.ID)
	res, err = f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: appC.ID})
	require.NoError(t, err)
	assert.True(t, res.RecruitmentClosed)
	assert.Nil(t, res.Recruitment)

	_, err = f.svc.GetRecruitment(ctx, party.ID, rec.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = f.svc.FindRecruitment(ctx, rec.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	members, err := f.svc.ListMembers(ctx, party.ID, memberships.ListQuery{})
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, m := range members[1:] {
		assert.Equal(t, enums.PartyAuthorityMember, m.Authority)
		assert.Equal(t, f.designID, m.PositionID)
	}

	var leftover models.PartyApplication
	require.NoError(t, f.conn.Where("id = ?", appD.ID).First(&leftover).Error)
	assert.Equal(t, enums.ApplicationStatusRejected, leftover.Status)
	assert.Nil(t, leftover.PartyRecruitmentID)
	assert.Equal(t, party.ID, leftover.PartyID)

	var approved models.PartyApplication
	require.NoError(t, f.conn.Where("id = ?", appC.ID).First(&approved).Error)
	assert.Equal(t, enums.ApplicationStatusApproved, approved.Status)

	assert.EqualValues(t, 1, f.countEvents(t, enums.EventRecruitmentClosed))
	assert.Equal(t, 2, f.metrics.seats)
}

func TestConcurrentApprovalsForLastSeat(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 1)
	appB := f.apply(t, userB, party.ID, rec.ID)
	appC := f.apply(t, userC, party.ID, rec.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, appID := range []int64{appB.ID, appC.ID} {
		wg.Add(1)
		go func(i int, appID int64) {
			defer wg.Done()
			_, errs[i] = f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: appID})
		}(i, appID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, pkgerrors.CodeConflict)
	}
	assert.Equal(t, 1, succeeded)

	var approved int64
	require.NoError(t, f.conn.Model(&models.PartyApplication{}).
		Where("party_id = ? AND status = ?", party.ID, enums.ApplicationStatusApproved).
		Count(&approved).Error)
	assert.EqualValues(t, 1, approved)

	var memberCount int64
	require.NoError(t, f.conn.Model(&models.PartyUser{}).Where("party_id = ?", party.ID).Count(&memberCount).Error)
	assert.EqualValues(t, 2, memberCount)

	var recCount int64
	require.NoError(t, f.conn.Model(&models.PartyRecruitment{}).Where("id = ?", rec.ID).Count(&recCount).Error)
	assert.Zero(t, recCount)
}

func TestApproveTwiceConflicts(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 3)
	app := f.apply(t, userB, party.ID, rec.ID)

	input := ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: app.ID}
	_, err := f.svc.ApproveApplication(ctx, input)
	require.NoError(t, err)
	_, err = f.svc.ApproveApplication(ctx, input)
	requireCode(t, err, pkgerrors.CodeConflict)

	var count int64
	require.NoError(t, f.conn.Model(&models.PartyUser{}).Where("party_id = ? AND user_id = ?", party.ID, userB).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitApplicationConflicts(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 2)

	first := f.apply(t, userB, party.ID, rec.ID)
	_, err := f.svc.SubmitApplication(ctx, SubmitApplicationInput{
		UserID: userB, PartyID: party.ID, RecruitmentID: rec.ID,
		Application: applications.SubmitInput{Message: "again"},
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = f.svc.RejectApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: first.ID})
	require.NoError(t, err)

	second := f.apply(t, userB, party.ID, rec.ID)
	assert.NotEqual(t, first.ID, second.ID)

	mine, err := f.svc.GetMyApplication(ctx, RecruitmentCommand{ActorID: userB, PartyID: party.ID, RecruitmentID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, second.ID, mine.ID)
	assert.Equal(t, enums.ApplicationStatusPending, mine.Status)

	_, err = f.svc.SubmitApplication(ctx, SubmitApplicationInput{
		UserID: userA, PartyID: party.ID, RecruitmentID: rec.ID,
		Application: applications.SubmitInput{Message: "me too"},
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = f.svc.SubmitApplication(ctx, SubmitApplicationInput{
		UserID: userC, PartyID: party.ID, RecruitmentID: 9999,
		Application: applications.SubmitInput{Message: "hello"},
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestReviewAuthorization(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 3)
	appB := f.apply(t, userB, party.ID, rec.ID)
	_, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: appB.ID})
	require.NoError(t, err)
	appC := f.apply(t, userC, party.ID, rec.ID)

	_, err = f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userB, PartyID: party.ID, ApplicationID: appC.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.RejectApplication(ctx, ApplicationDecisionInput{ActorID: userB, PartyID: party.ID, ApplicationID: appC.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = f.svc.RejectApplication(ctx, ApplicationDecisionInput{ActorID: userD, PartyID: party.ID, ApplicationID: appC.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: 9999})
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = f.svc.RejectApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: 9999})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.ListApplications(ctx, ListApplicationsInput{ActorID: userB, PartyID: party.ID, RecruitmentID: rec.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, f.svc.ChangeMemberAuthority(ctx, ChangeAuthorityInput{
		ActorID: userA, PartyID: party.ID, PartyUserID: f.member(t, party.ID, userB).ID, Authority: enums.PartyAuthorityEditor,
	}))
	page, err := f.svc.ListApplications(ctx, ListApplicationsInput{ActorID: userB, PartyID: party.ID, RecruitmentID: rec.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	rejected, err := f.svc.RejectApplication(ctx, ApplicationDecisionInput{ActorID: userB, PartyID: party.ID, ApplicationID: appC.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.ApplicationStatusRejected, rejected.Status)
	assert.Nil(t, f.member(t, party.ID, userC))
}

func TestApproveRejectsApplicationOfAnotherParty(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	own := f.createParty(t, userA, nil)
	other := f.createParty(t, userD, nil)
	rec := f.openRecruitment(t, userD, other.ID, 1)
	app := f.apply(t, userB, other.ID, rec.ID)

	_, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: own.ID, ApplicationID: app.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestDelegateMasterSwapsAtomically(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 2)
	app := f.apply(t, userB, party.ID, rec.ID)
	_, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: app.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DelegateMaster(ctx, DelegateMasterInput{ActorID: userA, PartyID: party.ID, NewMasterUserID: userB}))

	assert.Equal(t, enums.PartyAuthorityEditor, f.member(t, party.ID, userA).Authority)
	assert.Equal(t, enums.PartyAuthorityMaster, f.member(t, party.ID, userB).Authority)

	var masters int64
	require.NoError(t, f.conn.Model(&models.PartyUser{}).
		Where("party_id = ? AND authority = ?", party.ID, enums.PartyAuthorityMaster).
		Count(&masters).Error)
	assert.EqualValues(t, 1, masters)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventMasterDelegated))

	err = f.svc.DelegateMaster(ctx, DelegateMasterInput{ActorID: userA, PartyID: party.ID, NewMasterUserID: userB})
	requireCode(t, err, pkgerrors.CodeForbidden)

	err = f.svc.DelegateMaster(ctx, DelegateMasterInput{ActorID: userB, PartyID: party.ID, NewMasterUserID: userC})
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, enums.PartyAuthorityMaster, f.member(t, party.ID, userB).Authority)
}

func TestRemoveMembers(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 3)
	for _, user := range []int64{userB, userC} {
		app := f.apply(t, user, party.ID, rec.ID)
		_, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: app.ID})
		require.NoError(t, err)
	}
	master := f.member(t, party.ID, userA)
	memberB := f.member(t, party.ID, userB)
	memberC := f.member(t, party.ID, userC)

	err := f.svc.RemoveMember(ctx, RemoveMemberInput{ActorID: userA, PartyID: party.ID, PartyUserID: master.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	err = f.svc.BatchRemoveMembers(ctx, BatchRemoveMembersInput{ActorID: userA, PartyID: party.ID, PartyUserIDs: []int64{memberB.ID, master.ID}})
	requireCode(t, err, pkgerrors.CodeForbidden)
	require.NotNil(t, f.member(t, party.ID, userB))

	err = f.svc.RemoveMember(ctx, RemoveMemberInput{ActorID: userB, PartyID: party.ID, PartyUserID: memberC.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	err = f.svc.BatchRemoveMembers(ctx, BatchRemoveMembersInput{ActorID: userA, PartyID: party.ID, PartyUserIDs: []int64{memberB.ID, 9999}})
	requireCode(t, err, pkgerrors.CodeNotFound)
	require.NotNil(t, f.member(t, party.ID, userB))

	require.NoError(t, f.svc.BatchRemoveMembers(ctx, BatchRemoveMembersInput{ActorID: userA, PartyID: party.ID, PartyUserIDs: []int64{memberB.ID, memberC.ID}}))
	assert.Nil(t, f.member(t, party.ID, userB))
	assert.Nil(t, f.member(t, party.ID, userC))
	assert.EqualValues(t, 2, f.countEvents(t, enums.EventMemberRemoved))
}

func TestLeaveParty(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 2)
	app := f.apply(t, userB, party.ID, rec.ID)
	_, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: app.ID})
	require.NoError(t, err)

	requireCode(t, f.svc.LeaveParty(ctx, PartyCommand{ActorID: userA, PartyID: party.ID}), pkgerrors.CodeForbidden)
	require.NoError(t, f.svc.LeaveParty(ctx, PartyCommand{ActorID: userB, PartyID: party.ID}))
	assert.Nil(t, f.member(t, party.ID, userB))
	requireCode(t, f.svc.LeaveParty(ctx, PartyCommand{ActorID: userB, PartyID: party.ID}), pkgerrors.CodeForbidden)
}

func TestEndedAndDeletedPartiesRefuseMutation(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 2)
	app := f.apply(t, userB, party.ID, rec.ID)

	ended, err := f.svc.EndParty(ctx, PartyCommand{ActorID: userA, PartyID: party.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.PartyStatusArchived, ended.Status)

	var pending models.PartyApplication
	require.NoError(t, f.conn.Where("id = ?", app.ID).First(&pending).Error)
	assert.Equal(t, enums.ApplicationStatusRejected, pending.Status)

	_, err = f.svc.CreateRecruitment(ctx, CreateRecruitmentInput{
		ActorID: userA, PartyID: party.ID,
		Recruitment: recruitments.OpenInput{PositionID: f.designID, Content: "x", RecruitingCount: 1},
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	master := f.member(t, party.ID, userA)
	require.NotNil(t, master)
	err = f.svc.RemoveMember(ctx, RemoveMemberInput{ActorID: userA, PartyID: party.ID, PartyUserID: master.ID})
	requireCode(t, err, pkgerrors.CodeConflict)
	kept := f.member(t, party.ID, userA)
	require.NotNil(t, kept)
	assert.Equal(t, enums.PartyAuthorityMaster, kept.Authority)

	readable, err := f.svc.GetParty(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PartyStatusArchived, readable.Status)

	require.NoError(t, f.svc.DeleteParty(ctx, PartyCommand{ActorID: userA, PartyID: party.ID}))

	_, err = f.svc.CreateRecruitment(ctx, CreateRecruitmentInput{
		ActorID: userA, PartyID: party.ID,
		Recruitment: recruitments.OpenInput{PositionID: f.designID, Content: "x", RecruitingCount: 1},
	})
	requireCode(t, err, pkgerrors.CodeGone)
	_, err = f.svc.GetParty(ctx, party.ID)
	requireCode(t, err, pkgerrors.CodeGone)
	requireCode(t, f.svc.DeleteParty(ctx, PartyCommand{ActorID: userA, PartyID: party.ID}), pkgerrors.CodeGone)

	var row models.Party
	require.NoError(t, f.conn.Where("id = ?", party.ID).First(&row).Error)
	assert.Equal(t, enums.PartyStatusDeleted, row.Status)
	assert.NotNil(t, row.DeletedAt)
}

func TestDeletePartyRequiresMaster(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)

	requireCode(t, f.svc.DeleteParty(ctx, PartyCommand{ActorID: userB, PartyID: party.ID}), pkgerrors.CodeForbidden)
	requireCode(t, f.svc.DeleteParty(ctx, PartyCommand{ActorID: userA, PartyID: 9999}), pkgerrors.CodeNotFound)
	_, err := f.svc.EndParty(ctx, PartyCommand{ActorID: userB, PartyID: party.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdatePartyReleasesReplacedImageAfterCommit(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, strPtr("parties/old.png"))

	updated, err := f.svc.UpdateParty(ctx, UpdatePartyInput{
		ActorID: userA,
		PartyID: party.ID,
		Fields:  parties.UpdatePartyInput{Title: strPtr("renamed"), Image: strPtr("parties/new.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	require.Len(t, f.images.released, 1)
	got := f.images.released[0]
	assert.Equal(t, "parties/old.png", got.ref)
	require.True(t, got.partyVisible)
	require.NotNil(t, got.partyImage)
	assert.Equal(t, "parties/new.png", *got.partyImage)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventPartyImageReleased))
}

func TestUpdatePartyKeepsImageWhenUpdateFails(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, strPtr("parties/old.png"))

	badType := int64(9999)
	_, err := f.svc.UpdateParty(ctx, UpdatePartyInput{
		ActorID: userA,
		PartyID: party.ID,
		Fields:  parties.UpdatePartyInput{TypeID: &badType, Image: strPtr("parties/new.png")},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Empty(t, f.images.released)

	var row models.Party
	require.NoError(t, f.conn.Where("id = ?", party.ID).First(&row).Error)
	require.NotNil(t, row.Image)
	assert.Equal(t, "parties/old.png", *row.Image)
}

func TestImageReleaseFailureIsNotSurfaced(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, strPtr("parties/old.png"))
	f.images.err = errors.New("disk unavailable")

	dto, err := f.svc.DeletePartyImage(ctx, PartyCommand{ActorID: userA, PartyID: party.ID})
	require.NoError(t, err)
	assert.Nil(t, dto.Image)
	require.Len(t, f.images.released, 1)

	_, err = f.svc.DeletePartyImage(ctx, PartyCommand{ActorID: userA, PartyID: party.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateRecruitmentCapacity(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	rec := f.openRecruitment(t, userA, party.ID, 3)
	app := f.apply(t, userB, party.ID, rec.ID)
	_, err := f.svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: userA, PartyID: party.ID, ApplicationID: app.ID})
	require.NoError(t, err)

	one := 1
	_, err = f.svc.UpdateRecruitment(ctx, UpdateRecruitmentInput{
		ActorID: userA, PartyID: party.ID, RecruitmentID: rec.ID,
		Fields: recruitments.UpdateInput{RecruitingCount: &one},
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	five := 5
	updated, err := f.svc.UpdateRecruitment(ctx, UpdateRecruitmentInput{
		ActorID: userA, PartyID: party.ID, RecruitmentID: rec.ID,
		Fields: recruitments.UpdateInput{RecruitingCount: &five},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.RecruitingCount)
	assert.Equal(t, 1, updated.RecruitedCount)

	_, err = f.svc.UpdateRecruitment(ctx, UpdateRecruitmentInput{
		ActorID: userB, PartyID: party.ID, RecruitmentID: rec.ID,
		Fields: recruitments.UpdateInput{RecruitingCount: &five},
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestBatchRecruitments(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)

	tooMany := make([]recruitments.OpenInput, recruitments.MaxBatchOpen+1)
	_, err := f.svc.CreateRecruitments(ctx, CreateRecruitmentsInput{ActorID: userA, PartyID: party.ID, Recruitments: tooMany})
	requireCode(t, err, pkgerrors.CodeValidation)

	opened, err := f.svc.CreateRecruitments(ctx, CreateRecruitmentsInput{
		ActorID: userA,
		PartyID: party.ID,
		Recruitments: []recruitments.OpenInput{
			{PositionID: f.backendID, Content: "backend", RecruitingCount: 1},
			{PositionID: f.designID, Content: "design", RecruitingCount: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, opened, 2)

	designOnly, err := f.svc.ListRecruitments(ctx, party.ID, recruitments.ListQuery{Main: "designer"})
	require.NoError(t, err)
	require.Len(t, designOnly, 1)
	assert.Equal(t, opened[1].ID, designOnly[0].ID)

	app := f.apply(t, userB, party.ID, opened[0].ID)

	err = f.svc.BatchDeleteRecruitments(ctx, BatchDeleteRecruitmentsInput{ActorID: userA, PartyID: party.ID, RecruitmentIDs: []int64{opened[0].ID, 9999}})
	requireCode(t, err, pkgerrors.CodeNotFound)
	all, err := f.svc.ListRecruitments(ctx, party.ID, recruitments.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, f.svc.BatchDeleteRecruitments(ctx, BatchDeleteRecruitmentsInput{ActorID: userA, PartyID: party.ID, RecruitmentIDs: []int64{opened[0].ID, opened[1].ID}}))
	all, err = f.svc.ListRecruitments(ctx, party.ID, recruitments.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, all)

	var closedApp models.PartyApplication
	require.NoError(t, f.conn.Where("id = ?", app.ID).First(&closedApp).Error)
	assert.Equal(t, enums.ApplicationStatusRejected, closedApp.Status)
	assert.Nil(t, closedApp.PartyRecruitmentID)
}

func TestListPartiesExcludesDeleted(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	kept := f.createParty(t, userA, nil)
	gone := f.createParty(t, userA, nil)
	require.NoError(t, f.svc.DeleteParty(ctx, PartyCommand{ActorID: userA, PartyID: gone.ID}))

	page, err := f.svc.ListParties(ctx, parties.ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, kept.ID, page.Items[0].ID)

	types, err := f.svc.ListPartyTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "side project", types[0].Description)
}

func TestCommandsAreObserved(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	party := f.createParty(t, userA, nil)
	_, err := f.svc.EndParty(ctx, PartyCommand{ActorID: userB, PartyID: party.ID})
	require.Error(t, err)

	require.Len(t, f.metrics.outcomes["create_party"], 1)
	assert.NoError(t, f.metrics.outcomes["create_party"][0])
	require.Len(t, f.metrics.outcomes["end_party"], 1)
	assert.True(t, pkgerrors.Is(f.metrics.outcomes["end_party"][0], pkgerrors.CodeForbidden))
}
