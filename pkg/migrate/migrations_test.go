package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/filedrop-backend/pkg/migrate"
)

const migrationsDir = "../../migrations"

func TestMigrationsValidate(t *testing.T) {
	if err := migrate.ValidateDir(migrationsDir); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestUploadsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(migrationsDir, "*_create_uploads.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no uploads migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE uploads",
		"CONSTRAINT ux_uploads_file_key UNIQUE (file_key)",
		"CREATE INDEX ix_uploads_user_created ON uploads (user_id, created_at DESC)",
		"DROP TABLE uploads",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationKeepsUnpublishedIndexPartial(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(migrationsDir, "*_create_outbox_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "WHERE published_at IS NULL") {
		t.Errorf("unpublished index should be partial on published_at IS NULL")
	}
}
