package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantCode   Code
		wantStatus int
	}{
		{"not found", NotFound("Project"), CodeNotFound, http.StatusNotFound},
		{"invalid id", InvalidID("project id"), CodeInvalidID, http.StatusBadRequest},
		{"invalid url", InvalidURL("repo", fmt.Errorf("no slash")), CodeInvalidURL, http.StatusBadRequest},
		{"invalid request", InvalidRequest("bad body"), CodeInvalidRequest, http.StatusBadRequest},
		{"conflict", Conflict(810369639751355895, "https://x/B/A"), CodeConflict, http.StatusConflict},
		{"internal default message", Internal(""), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Error())
		})
	}

	assert.Equal(t, "Project not found", NotFound("Project").Message)
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NotFound("Project"))
	assert.Equal(t, CodeNotFound, As(wrapped).Code)
	assert.Same(t, ErrInternal, As(fmt.Errorf("plain")))
}
