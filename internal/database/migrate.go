package database

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/palemoky/repo-project-id/internal/projectid"
)

const (
	// Schema version for migrations
	SchemaVersion = 1

	metaSchemaVersion = "schema_version"
	metaIDScheme      = "id_scheme"
	metaCrawlCursor   = "crawl_final_project_id"
)

// ErrSchemeMismatch is returned when a database was populated with a
// different identifier scheme than the one this binary derives.
var ErrSchemeMismatch = errors.New("database identifier scheme does not match")

// Migrate creates all tables and records the schema version and id scheme
func (db *DB) Migrate() error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&Project{}, &Collision{}, &Metadata{}, &Language{}); err != nil {
			return fmt.Errorf("failed to migrate tables: %w", err)
		}

		var existing Metadata
		err := tx.Where("key = ?", metaIDScheme).First(&existing).Error
		switch {
		case err == nil:
			if existing.Value != projectid.Scheme {
				return fmt.Errorf("%w: stored %q, current %q", ErrSchemeMismatch, existing.Value, projectid.Scheme)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fresh database
		default:
			return fmt.Errorf("failed to read id scheme: %w", err)
		}

		rows := []Metadata{
			{Key: metaSchemaVersion, Value: strconv.Itoa(SchemaVersion)},
			{Key: metaIDScheme, Value: projectid.Scheme},
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}

		return nil
	})
}

// GetSchemaVersion returns the current schema version, 0 if never migrated
func (db *DB) GetSchemaVersion() (int, error) {
	if !db.Migrator().HasTable(&Metadata{}) {
		return 0, nil
	}

	var meta Metadata
	err := db.Where("key = ?", metaSchemaVersion).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(meta.Value)
}
