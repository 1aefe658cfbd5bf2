package database

import (
	"errors"
	"strconv"

	"gorm.io/gorm"
)

// Statistics and counting methods

const topAuthorsLimit = 10

// CountProjects returns the total number of projects
func (r *Repository) CountProjects() (int, error) {
	var count int64
	err := r.db.Model(&Project{}).Count(&count).Error
	return int(count), err
}

// CountAuthors returns the number of distinct authors
func (r *Repository) CountAuthors() (int, error) {
	var count int64
	err := r.db.Model(&Project{}).Distinct("author").Count(&count).Error
	return int(count), err
}

// CountCollisions returns the number of recorded collisions
func (r *Repository) CountCollisions() (int, error) {
	var count int64
	err := r.db.Model(&Collision{}).Count(&count).Error
	return int(count), err
}

// GetStatistics returns overall statistics
func (r *Repository) GetStatistics() (*Statistics, error) {
	stats := &Statistics{
		ByLicense:  []LicenseCount{},
		TopAuthors: []AuthorCount{},
		ByLanguage: []Language{},
	}

	var err error
	stats.TotalProjects, err = r.CountProjects()
	if err != nil {
		return nil, err
	}

	stats.TotalAuthors, err = r.CountAuthors()
	if err != nil {
		return nil, err
	}

	stats.TotalCollisions, err = r.CountCollisions()
	if err != nil {
		return nil, err
	}

	// Projects without a license are grouped under the empty string
	err = r.db.Model(&Project{}).
		Select("COALESCE(license, '') AS license, COUNT(*) AS project_count").
		Group("COALESCE(license, '')").
		Order("project_count DESC, license ASC").
		Scan(&stats.ByLicense).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&Project{}).
		Select("author, COUNT(*) AS project_count").
		Group("author").
		Order("project_count DESC, author ASC").
		Limit(topAuthorsLimit).
		Scan(&stats.TopAuthors).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Order("repositories DESC, name ASC").Find(&stats.ByLanguage).Error
	if err != nil {
		return nil, err
	}

	stats.LastCrawledID, err = r.crawlCursor()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// crawlCursor returns the last recorded crawl position, 0 before any crawl
func (r *Repository) crawlCursor() (int64, error) {
	var meta Metadata
	err := r.db.Where("key = ?", metaCrawlCursor).Take(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(meta.Value, 10, 64)
}
