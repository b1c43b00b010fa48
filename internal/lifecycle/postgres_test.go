//go:build db
// +build db

package lifecycle

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/internal/applications"
	"github.com/angelmondragon/partyhub-backend/internal/memberships"
	"github.com/angelmondragon/partyhub-backend/internal/parties"
	"github.com/angelmondragon/partyhub-backend/internal/recruitments"
	dbpkg "github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
)

// openPostgres expects a database migrated with cmd/migrate up.
func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("PARTYHUB_DB_DSN")
	if dsn == "" {
		t.Skip("PARTYHUB_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func TestPostgresRacingApprovalsFillOneSeat(t *testing.T) {
	conn := openPostgres(t)
	ctx := context.Background()

	var typeID, positionID int64
	if err := conn.Raw("SELECT id FROM party_types ORDER BY id LIMIT 1").Scan(&typeID).Error; err != nil || typeID == 0 {
		t.Fatalf("party type catalogue missing: %v", err)
	}
	if err := conn.Raw("SELECT id FROM positions ORDER BY id LIMIT 1").Scan(&positionID).Error; err != nil || positionID == 0 {
		t.Fatalf("position catalogue missing: %v", err)
	}

	svc, err := NewService(ServiceParams{
		DB:           dbpkg.Wrap(conn),
		Parties:      parties.NewRepository(conn),
		Recruitments: recruitments.NewLedger(conn),
		Applications: applications.NewRepository(conn),
		Memberships:  memberships.NewStore(conn),
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	base := time.Now().UnixNano() % 1_000_000_000
	master, candidates := base, []int64{base + 1, base + 2, base + 3, base + 4}

	party, err := svc.CreateParty(ctx, CreatePartyInput{
		FounderID: master,
		Party: parties.CreatePartyInput{
			TypeID:     typeID,
			Title:      "pg race",
			Content:    "one seat left",
			PositionID: positionID,
		},
	})
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"outbox_events", "party_applications", "party_recruitments", "party_users"} {
			conn.Exec("DELETE FROM "+table+" WHERE party_id = ?", party.ID)
		}
		conn.Exec("DELETE FROM parties WHERE id = ?", party.ID)
	})

	rec, err := svc.CreateRecruitment(ctx, CreateRecruitmentInput{
		ActorID: master,
		PartyID: party.ID,
		Recruitment: recruitments.OpenInput{
			PositionID:      positionID,
			Content:         "last seat",
			RecruitingCount: 1,
		},
	})
	if err != nil {
		t.Fatalf("open recruitment: %v", err)
	}

	appIDs := make([]int64, 0, len(candidates))
	for _, user := range candidates {
		app, err := svc.SubmitApplication(ctx, SubmitApplicationInput{
			UserID:        user,
			PartyID:       party.ID,
			RecruitmentID: rec.ID,
			Application:   applications.SubmitInput{Message: "pick me"},
		})
		if err != nil {
			t.Fatalf("submit application: %v", err)
		}
		appIDs = append(appIDs, app.ID)
	}

	start := make(chan struct{})
	errs := make([]error, len(appIDs))
	var wg sync.WaitGroup
	for i, appID := range appIDs {
		wg.Add(1)
		go func(i int, appID int64) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.ApproveApplication(ctx, ApplicationDecisionInput{ActorID: master, PartyID: party.ID, ApplicationID: appID})
		}(i, appID)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
			t.Fatalf("expected conflict for losing approval, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one approval, got %d", succeeded)
	}

	var approved int64
	if err := conn.Model(&models.PartyApplication{}).
		Where("party_id = ? AND status = ?", party.ID, enums.ApplicationStatusApproved).
		Count(&approved).Error; err != nil {
		t.Fatalf("count approved: %v", err)
	}
	if approved != 1 {
		t.Fatalf("expected one approved application, got %d", approved)
	}

	var members int64
	if err := conn.Model(&models.PartyUser{}).Where("party_id = ?", party.ID).Count(&members).Error; err != nil {
		t.Fatalf("count members: %v", err)
	}
	if members != 2 {
		t.Fatalf("expected master plus one admitted member, got %d", members)
	}

	var open int64
	if err := conn.Model(&models.PartyRecruitment{}).Where("id = ?", rec.ID).Count(&open).Error; err != nil {
		t.Fatalf("count recruitments: %v", err)
	}
	if open != 0 {
		t.Fatalf("expected the filled recruitment to be closed")
	}
}
