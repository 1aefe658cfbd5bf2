package database

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/palemoky/repo-project-id/internal/logger"
)

var (
	// ErrNotFound is returned when no project matches a lookup
	ErrNotFound = errors.New("project not found")

	// ErrIDCollision is returned when a different URL already holds an identifier
	ErrIDCollision = errors.New("project id collision")
)

// CollisionError describes which URLs share an identifier. It matches ErrIDCollision.
type CollisionError struct {
	ID          int64
	ExistingURL string
	NewURL      string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("project id %d: held by %s, derived again by %s", e.ID, e.ExistingURL, e.NewURL)
}

func (e *CollisionError) Unwrap() error {
	return ErrIDCollision
}

// RepositoryInterface defines the interface for repository operations
type RepositoryInterface interface {
	UpsertProject(project *Project) error
	BatchInsertProjects(projects []*Project, batchSize int) error
	GetProjectByID(id int64) (*Project, error)
	GetProjectByURL(url string) (*Project, error)
	GetURLsByIDs(ids []int64) (map[int64]string, error)
	ListProjects(limit, offset int, author *string) ([]Project, int, error)
	CountProjects() (int, error)
	CountAuthors() (int, error)
	GetStatistics() (*Statistics, error)
	RecordCollision(id int64, existingURL, newURL string) error
	FindCollisions() ([]Collision, error)
}

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UpsertProject inserts a project or refreshes the existing row with the same
// identifier and URL. Only the crawler fields the new record carries are
// overwritten, so a ranking entry and a metadata record of one repository merge.
// If the identifier is held by a different URL a *CollisionError is returned
// and nothing is written.
func (r *Repository) UpsertProject(project *Project) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.checkCollision(tx, project); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(refreshColumns(project)),
		}).Create(project).Error
	})
}

// refreshColumns lists the columns an upsert of p may overwrite
func refreshColumns(p *Project) []string {
	columns := []string{"updated_at"}
	for _, field := range []struct {
		column string
		set    bool
	}{
		{"source_id", p.SourceID != nil},
		{"importance", p.Importance != nil},
		{"version_time", p.VersionTime != nil},
		{"version_hash", p.VersionHash != nil},
		{"license", p.License != nil},
		{"author_mail", p.AuthorMail != nil},
		{"default_branch", p.DefaultBranch != nil},
		{"metadata", len(p.Metadata) > 0},
	} {
		if field.set {
			columns = append(columns, field.column)
		}
	}
	return columns
}

func (r *Repository) checkCollision(tx *gorm.DB, project *Project) error {
	var existing Project
	err := tx.Select("id", "url").Where("id = ?", project.ID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.URL != project.URL {
		return &CollisionError{ID: project.ID, ExistingURL: existing.URL, NewURL: project.URL}
	}
	return nil
}

// BatchInsertProjects inserts multiple projects in batches
// Rows whose id already exists are skipped (ON CONFLICT DO NOTHING); callers
// that care about collisions check GetURLsByIDs first
func (r *Repository) BatchInsertProjects(projects []*Project, batchSize int) error {
	if len(projects) == 0 {
		return nil
	}

	if batchSize <= 0 {
		batchSize = 100 // Default batch size
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).CreateInBatches(projects, batchSize).Error
}

// GetProjectByID retrieves a project by its derived identifier
func (r *Repository) GetProjectByID(id int64) (*Project, error) {
	var project Project
	err := r.db.First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjectByURL retrieves the oldest project registered under url
func (r *Repository) GetProjectByURL(url string) (*Project, error) {
	var project Project
	err := r.db.Where("url = ?", url).Order("created_at ASC").First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetURLsByIDs returns the stored URL for each identifier that exists
func (r *Repository) GetURLsByIDs(ids []int64) (map[int64]string, error) {
	result := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []Project
	err := r.db.Select("id", "url").Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ID] = row.URL
	}
	return result, nil
}

// ListProjects returns a page of projects, optionally filtered by author
func (r *Repository) ListProjects(limit, offset int, author *string) ([]Project, int, error) {
	query := r.db.Model(&Project{})
	if author != nil {
		query = query.Where("author = ?", *author)
	}
	// shared by Count and Find below
	query = query.Session(&gorm.Session{})

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	var projects []Project
	err := query.Order("author ASC, name ASC").
		Limit(limit).Offset(offset).
		Find(&projects).Error

	return projects, int(totalCount), err
}

// RecordCollision stores a detected collision; repeats are ignored
func (r *Repository) RecordCollision(id int64, existingURL, newURL string) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&Collision{
		ProjectID:   id,
		ExistingURL: existingURL,
		NewURL:      newURL,
	}).Error
}

// FindCollisions returns every recorded collision, oldest first
func (r *Repository) FindCollisions() ([]Collision, error) {
	var collisions []Collision
	err := r.db.Order("created_at ASC, id ASC").Find(&collisions).Error
	return collisions, err
}

// RecordCrawl replaces the stored language histogram with the one of the
// latest crawl and remembers the repository the crawl stopped at
func (r *Repository) RecordCrawl(languages map[string]int, finalProjectID int64) error {
	rows := make([]Language, 0, len(languages))
	for name, count := range languages {
		rows = append(rows, Language{Name: name, Repositories: count})
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Language{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		cursor := Metadata{Key: metaCrawlCursor, Value: strconv.FormatInt(finalProjectID, 10)}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&cursor).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record crawl: %w", err)
	}

	logger.Debug("Recorded crawl",
		zap.Int("languages", len(rows)),
		zap.Int64("final_project_id", finalProjectID),
	)
	return nil
}
