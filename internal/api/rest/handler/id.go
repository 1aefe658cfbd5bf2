package handler

import (
	"github.com/gin-gonic/gin"

	apierrors "github.com/palemoky/repo-project-id/internal/errors"
	"github.com/palemoky/repo-project-id/internal/metrics"
	"github.com/palemoky/repo-project-id/internal/projectid"
)

// IDHandler derives identifiers on demand
type IDHandler struct {
	deriver *projectid.Deriver
}

// NewIDHandler creates a new id handler. A nil deriver uses MD5.
func NewIDHandler(deriver *projectid.Deriver) *IDHandler {
	return &IDHandler{deriver: deriver}
}

// DeriveFromURL splits ?url= into name and author and derives its identifier
func (h *IDHandler) DeriveFromURL(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		respondError(c, apierrors.InvalidRequest("Query parameter 'url' is required"))
		return
	}

	name, author, err := projectid.SplitURL(url)
	if err != nil {
		respondError(c, apierrors.InvalidURL(url, err))
		return
	}

	id := h.deriver.Derive(name, author, url)
	metrics.Derivations.WithLabelValues("api").Inc()
	respondOK(c, formatDerivation(id, name, author, url))
}

type deriveRequest struct {
	Name   string `json:"name"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// DeriveTriple derives the identifier of an explicit {name, author, url}
// body. The strings are used verbatim; empty values are allowed.
func (h *IDHandler) DeriveTriple(c *gin.Context) {
	var req deriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.InvalidRequest("Request body must be a JSON object with name, author and url"))
		return
	}

	id := h.deriver.Derive(req.Name, req.Author, req.URL)
	metrics.Derivations.WithLabelValues("api").Inc()
	respondOK(c, formatDerivation(id, req.Name, req.Author, req.URL))
}
