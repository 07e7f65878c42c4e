package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/snipstash/backend/internal/snippets"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsRepairsStrayTeamAssignments(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&snippets.Snippet{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	teamID := int64(3)
	stray := snippets.Snippet{
		Title:      "Orphaned",
		Code:       "print('hi')",
		Language:   "python",
		UserID:     1,
		TeamID:     &teamID,
		Visibility: snippets.VisibilityPrivate,
	}
	if err := database.Create(&stray).Error; err != nil {
		testContext.Fatalf("failed to insert snippet: %v", err)
	}

	shared := snippets.Snippet{
		Title:      "Shared",
		Code:       "print('hi')",
		Language:   "python",
		UserID:     1,
		TeamID:     &teamID,
		Visibility: snippets.VisibilityTeam,
	}
	if err := database.Create(&shared).Error; err != nil {
		testContext.Fatalf("failed to insert snippet: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var repaired snippets.Snippet
	if err := database.Take(&repaired, stray.ID).Error; err != nil {
		testContext.Fatalf("failed to reload snippet: %v", err)
	}
	if repaired.TeamID != nil {
		testContext.Fatalf("expected stray team id to be cleared, got %d", *repaired.TeamID)
	}

	var untouched snippets.Snippet
	if err := database.Take(&untouched, shared.ID).Error; err != nil {
		testContext.Fatalf("failed to reload snippet: %v", err)
	}
	if untouched.TeamID == nil || *untouched.TeamID != teamID {
		testContext.Fatalf("team-visible snippet must keep its team id")
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationRepairStrayTeamAssignments).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}
