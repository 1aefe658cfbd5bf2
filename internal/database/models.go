package database

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a registered repository keyed by its derived identifier
type Project struct {
	ID            int64          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name          string         `gorm:"not null"                       json:"name"`
	Author        string         `gorm:"not null;index"                 json:"author"`
	URL           string         `gorm:"not null;index"                 json:"url"`
	Scheme        string         `gorm:"not null;size:32"               json:"scheme"`
	SourceID      *int64         `                                      json:"source_id,omitempty"` // Hosting provider id
	Importance    *int64         `gorm:"index"                          json:"importance,omitempty"` // Stargazers at crawl time
	VersionTime   *string        `                                      json:"version_time,omitempty"`
	VersionHash   *string        `gorm:"size:64"                        json:"version_hash,omitempty"`
	License       *string        `gorm:"index"                          json:"license,omitempty"`
	AuthorMail    *string        `                                      json:"author_mail,omitempty"`
	DefaultBranch *string        `                                      json:"default_branch,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:json"                      json:"metadata,omitempty"` // Raw crawler record
	CreatedAt     time.Time      `gorm:"autoCreateTime"                 json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"                 json:"updated_at"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}

// Collision records two distinct URLs that derived the same identifier
type Collision struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"            json:"-"`
	ProjectID   int64     `gorm:"not null;uniqueIndex:idx_collision"  json:"project_id"`
	ExistingURL string    `gorm:"not null"                            json:"existing_url"`
	NewURL      string    `gorm:"not null;uniqueIndex:idx_collision"  json:"new_url"`
	CreatedAt   time.Time `gorm:"autoCreateTime"                      json:"created_at"`
}

// TableName specifies the table name for Collision
func (Collision) TableName() string {
	return "project_collisions"
}

// Metadata is a key/value row describing the database itself
type Metadata struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Metadata
func (Metadata) TableName() string {
	return "metadata"
}

// Language is one bucket of the latest crawl's language histogram
type Language struct {
	Name         string `gorm:"primaryKey" json:"language"`
	Repositories int    `gorm:"not null"   json:"repositories"`
}

// TableName specifies the table name for Language
func (Language) TableName() string {
	return "languages"
}

// LicenseCount is the number of projects carrying a license
type LicenseCount struct {
	License      string `json:"license"`
	ProjectCount int    `json:"project_count"`
}

// AuthorCount is the number of projects owned by an author
type AuthorCount struct {
	Author       string `json:"author"`
	ProjectCount int    `json:"project_count"`
}

// Statistics holds overall registry statistics
type Statistics struct {
	TotalProjects   int            `json:"total_projects"`
	TotalAuthors    int            `json:"total_authors"`
	TotalCollisions int            `json:"total_collisions"`
	ByLicense       []LicenseCount `json:"by_license"`
	TopAuthors      []AuthorCount  `json:"top_authors"`
	ByLanguage      []Language     `json:"by_language"`
	LastCrawledID   int64          `json:"last_crawled_source_id,omitempty"`
}
