package database

import (
	"errors"
	"time"

	"github.com/snipstash/backend/internal/snippets"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRepairStrayTeamAssignments = "2026-08-12_repair_stray_team_assignments"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRepairStrayTeamAssignments, apply: repairStrayTeamAssignments},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// repairStrayTeamAssignments clears team ids left behind on rows whose
// visibility no longer allows one. The write path enforces this invariant
// for new rows; this repairs databases written before it did.
func repairStrayTeamAssignments(db *gorm.DB) error {
	return db.Model(&snippets.Snippet{}).
		Where("visibility <> ? AND team_id IS NOT NULL", snippets.VisibilityTeam).
		Update("team_id", nil).Error
}
