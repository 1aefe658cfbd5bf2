package database

import (
	"sync"
)

// CachedRepository wraps Repository with caching for frequently accessed data
type CachedRepository struct {
	*Repository

	// url -> project id
	urlCache   map[string]int64
	urlCacheMu sync.RWMutex

	// project id -> project
	projectCache   map[int64]Project
	projectCacheMu sync.RWMutex
}

// NewCachedRepository creates a new cached repository
func NewCachedRepository(repo *Repository) *CachedRepository {
	return &CachedRepository{
		Repository:   repo,
		urlCache:     make(map[string]int64),
		projectCache: make(map[int64]Project),
	}
}

// GetProjectByID gets a project with caching
func (r *CachedRepository) GetProjectByID(id int64) (*Project, error) {
	r.projectCacheMu.RLock()
	if project, ok := r.projectCache[id]; ok {
		r.projectCacheMu.RUnlock()
		return &project, nil
	}
	r.projectCacheMu.RUnlock()

	project, err := r.Repository.GetProjectByID(id)
	if err != nil {
		return nil, err
	}

	r.storeProject(project)
	return project, nil
}

// GetProjectByURL gets a project by url with caching
func (r *CachedRepository) GetProjectByURL(url string) (*Project, error) {
	r.urlCacheMu.RLock()
	id, ok := r.urlCache[url]
	r.urlCacheMu.RUnlock()
	if ok {
		return r.GetProjectByID(id)
	}

	project, err := r.Repository.GetProjectByURL(url)
	if err != nil {
		return nil, err
	}

	r.urlCacheMu.Lock()
	r.urlCache[url] = project.ID
	r.urlCacheMu.Unlock()
	r.storeProject(project)

	return project, nil
}

// UpsertProject writes through and drops the stale cached copy
func (r *CachedRepository) UpsertProject(project *Project) error {
	if err := r.Repository.UpsertProject(project); err != nil {
		return err
	}

	r.projectCacheMu.Lock()
	delete(r.projectCache, project.ID)
	r.projectCacheMu.Unlock()

	return nil
}

func (r *CachedRepository) storeProject(project *Project) {
	r.projectCacheMu.Lock()
	r.projectCache[project.ID] = *project
	r.projectCacheMu.Unlock()
}

// GetCacheStats returns statistics about cache usage
func (r *CachedRepository) GetCacheStats() map[string]int {
	r.urlCacheMu.RLock()
	urlCount := len(r.urlCache)
	r.urlCacheMu.RUnlock()

	r.projectCacheMu.RLock()
	projectCount := len(r.projectCache)
	r.projectCacheMu.RUnlock()

	return map[string]int{
		"urls":     urlCount,
		"projects": projectCount,
	}
}
