package migrate_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/angelmondragon/partyhub-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	fsys := migrate.Migrations()
	matches, err := fs.Glob(fsys, "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration embedded", suffix)
	}
	data, err := fs.ReadFile(fsys, matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPartyUsersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_party_users"), []string{
		"CREATE TABLE IF NOT EXISTS party_users",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_party_users_user_party ON party_users (user_id, party_id)",
		"WHERE authority = 'master'",
		"CHECK (authority IN ('master', 'editor', 'member'))",
		"DROP TABLE IF EXISTS party_users",
	})
}

func TestRecruitmentMigrationGuardsCapacity(t *testing.T) {
	assertContains(t, readMigration(t, "create_party_recruitments"), []string{
		"CREATE TABLE IF NOT EXISTS party_recruitments",
		"CHECK (recruiting_count >= 1)",
		"CHECK (recruited_count >= 0 AND recruited_count <= recruiting_count)",
		"DROP TABLE IF EXISTS party_recruitments",
	})
}

func TestApplicationsMigrationKeepsHistoryOnClose(t *testing.T) {
	assertContains(t, readMigration(t, "create_party_applications"), []string{
		"CREATE TABLE IF NOT EXISTS party_applications",
		"REFERENCES party_recruitments(id) ON DELETE SET NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_party_applications_open",
		"WHERE status <> 'approved' AND status <> 'rejected'",
		"DROP TABLE IF EXISTS party_applications",
	})
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox_events"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CONSTRAINT ux_outbox_events_event_id UNIQUE (event_id)",
		"WHERE published_at IS NULL",
		"party_id BIGINT NOT NULL",
		"idx_outbox_events_party ON outbox_events (party_id, id)",
	})
}
