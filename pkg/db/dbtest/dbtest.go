// Package dbtest opens isolated in-memory sqlite databases carrying the full schema.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
)

// Open returns a migrated connection limited to one underlying sql connection,
// so concurrent transactions queue instead of failing with SQLITE_BUSY.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:partyhub_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// SeedReference inserts one party type and two positions and returns their ids.
func SeedReference(t *testing.T, conn *gorm.DB) (typeID, positionA, positionB int64) {
	t.Helper()

	partyType := models.PartyType{Description: "side project"}
	if err := conn.Create(&partyType).Error; err != nil {
		t.Fatalf("seed party type: %v", err)
	}
	backend := models.Position{Main: "developer", Sub: "backend"}
	design := models.Position{Main: "designer", Sub: "product"}
	if err := conn.Create(&backend).Error; err != nil {
		t.Fatalf("seed position: %v", err)
	}
	if err := conn.Create(&design).Error; err != nil {
		t.Fatalf("seed position: %v", err)
	}
	return partyType.ID, backend.ID, design.ID
}
