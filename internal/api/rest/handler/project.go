package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/palemoky/repo-project-id/internal/database"
	apierrors "github.com/palemoky/repo-project-id/internal/errors"
	"github.com/palemoky/repo-project-id/internal/logger"
	"github.com/palemoky/repo-project-id/internal/metrics"
	"github.com/palemoky/repo-project-id/internal/projectid"
)

// ProjectStore is the part of the registry used by the project routes
type ProjectStore interface {
	GetProjectByID(id int64) (*database.Project, error)
	GetProjectByURL(url string) (*database.Project, error)
	ListProjects(limit, offset int, author *string) ([]database.Project, int, error)
	UpsertProject(project *database.Project) error
	RecordCollision(id int64, existingURL, newURL string) error
}

// ProjectHandler handles registry lookups and registrations
type ProjectHandler struct {
	repo    ProjectStore
	deriver *projectid.Deriver
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(repo ProjectStore) *ProjectHandler {
	return &ProjectHandler{repo: repo, deriver: projectid.NewDeriver(projectid.MD5)}
}

// ListProjects returns a page of registered projects
// Supports ?author= to filter by owner
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	pagination := ParsePagination(c)

	var author *string
	if a := c.Query("author"); a != "" {
		author = &a
	}

	projects, total, err := h.repo.ListProjects(pagination.PageSize, pagination.Offset(), author)
	if err != nil {
		logger.Error("Failed to list projects", zap.Error(err))
		respondError(c, apierrors.Internal("Failed to fetch projects"))
		return
	}

	data := make([]map[string]any, len(projects))
	for i := range projects {
		data[i] = formatProject(&projects[i], false)
	}

	c.JSON(http.StatusOK, NewPaginationResponse(data, pagination, int64(total)))
}

// GetProject returns a specific project by its identifier
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := h.repo.GetProjectByID(id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	respondOK(c, formatProject(project, true))
}

// LookupProject finds the project registered under ?url=
func (h *ProjectHandler) LookupProject(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		respondError(c, apierrors.InvalidRequest("Query parameter 'url' is required"))
		return
	}

	project, err := h.repo.GetProjectByURL(url)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	respondOK(c, formatProject(project, true))
}

type registerRequest struct {
	Name          string  `json:"name"`
	Author        string  `json:"author"`
	URL           string  `json:"url"`
	SourceID      *int64  `json:"source_id"`
	Importance    *int64  `json:"importance"`
	VersionTime   *string `json:"version_time"`
	VersionHash   *string `json:"version_hash"`
	License       *string `json:"license"`
	AuthorMail    *string `json:"author_mail"`
	DefaultBranch *string `json:"default_branch"`
}

// RegisterProject stores the project described by the body. Missing name or
// author are taken from the url. A project already registered under the same
// url has the supplied fields refreshed; an identifier held by a different
// url is recorded as a collision and rejected.
func (h *ProjectHandler) RegisterProject(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		respondError(c, apierrors.InvalidRequest("Request body must be a JSON object with at least a url"))
		return
	}

	project, err := h.newProject(&req)
	if err != nil {
		respondFailure(c, "Failed to derive project", err)
		return
	}

	_, err = h.repo.GetProjectByID(project.ID)
	created := errors.Is(err, database.ErrNotFound)
	if err != nil && !created {
		respondFailure(c, "Failed to fetch project", err)
		return
	}

	if err := h.repo.UpsertProject(project); err != nil {
		var collision *database.CollisionError
		if errors.As(err, &collision) {
			metrics.Collisions.Inc()
			logger.Warn("Project id collision",
				zap.Int64("id", collision.ID),
				zap.String("existing_url", collision.ExistingURL),
				zap.String("new_url", collision.NewURL),
			)
			if recErr := h.repo.RecordCollision(collision.ID, collision.ExistingURL, collision.NewURL); recErr != nil {
				logger.Error("Failed to record collision", zap.Error(recErr))
			}
			respondError(c, apierrors.Conflict(collision.ID, collision.ExistingURL))
			return
		}
		respondFailure(c, "Failed to register project", err)
		return
	}

	stored, err := h.repo.GetProjectByID(project.ID)
	if err != nil {
		respondFailure(c, "Failed to fetch project", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": formatProject(stored, true)})
}

func (h *ProjectHandler) newProject(req *registerRequest) (*database.Project, error) {
	name, author := req.Name, req.Author
	if name == "" || author == "" {
		urlName, urlAuthor, err := projectid.SplitURL(req.URL)
		if err != nil {
			return nil, apierrors.InvalidURL(req.URL, err)
		}
		if name == "" {
			name = urlName
		}
		if author == "" {
			author = urlAuthor
		}
	}

	id := h.deriver.Derive(name, author, req.URL)
	metrics.Derivations.WithLabelValues("api").Inc()

	return &database.Project{
		ID:            id,
		Name:          name,
		Author:        author,
		URL:           req.URL,
		Scheme:        projectid.Scheme,
		SourceID:      req.SourceID,
		Importance:    req.Importance,
		VersionTime:   req.VersionTime,
		VersionHash:   req.VersionHash,
		License:       req.License,
		AuthorMail:    req.AuthorMail,
		DefaultBranch: req.DefaultBranch,
	}, nil
}

func (h *ProjectHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, apierrors.NotFound("Project"))
		return
	}
	respondFailure(c, "Failed to fetch project", err)
}
