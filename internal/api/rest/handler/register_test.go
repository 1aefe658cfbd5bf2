package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/repo-project-id/internal/database"
	apierrors "github.com/palemoky/repo-project-id/internal/errors"
	"github.com/palemoky/repo-project-id/internal/testutil"
)

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterProject(t *testing.T) {
	_, repo := testutil.SetupTestDB(t)
	cached := database.NewCachedRepository(repo)
	handler := NewProjectHandler(cached)

	router := testutil.SetupTestGin()
	router.POST("/projects", handler.RegisterProject)
	router.GET("/projects/:id", handler.GetProject)

	t.Run("creates from url alone", func(t *testing.T) {
		w := postJSON(router, "/projects", `{"url":"https://github.com/torvalds/linux","importance":180000}`)
		require.Equal(t, http.StatusCreated, w.Code)

		data := decodeNumbers(t, w.Body.String())["data"].(map[string]any)
		assert.Equal(t, json.Number("1925405573481347582"), data["id"])
		assert.Equal(t, "linux", data["name"])
		assert.Equal(t, "torvalds", data["author"])
		assert.Equal(t, json.Number("180000"), data["importance"])
	})

	t.Run("refreshes a registered project", func(t *testing.T) {
		// warm the cache so a stale copy would show
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/1925405573481347582", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = postJSON(router, "/projects", `{"name":"linux","author":"torvalds","url":"https://github.com/torvalds/linux","license":"GPL-2.0"}`)
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeNumbers(t, w.Body.String())["data"].(map[string]any)
		assert.Equal(t, "GPL-2.0", data["license"])
		assert.Equal(t, json.Number("180000"), data["importance"], "fields not sent are kept")

		stored, err := repo.GetProjectByID(1925405573481347582)
		require.NoError(t, err)
		assert.Equal(t, "GPL-2.0", *stored.License)
	})

	t.Run("collision is recorded and rejected", func(t *testing.T) {
		w := postJSON(router, "/projects", `{"name":"A","author":"B","url":"https://x/B/A"}`)
		require.Equal(t, http.StatusCreated, w.Code)

		w = postJSON(router, "/projects", `{"name":"AB","author":"https://x/B/","url":"A"}`)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ID_COLLISION")
		assert.Contains(t, w.Body.String(), "https://x/B/A")

		collisions, err := repo.FindCollisions()
		require.NoError(t, err)
		require.Len(t, collisions, 1)
		assert.Equal(t, "A", collisions[0].NewURL)
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			code string
		}{
			{"not json", `nope`, "INVALID_REQUEST"},
			{"missing url", `{"name":"go","author":"golang"}`, "INVALID_REQUEST"},
			{"url cannot supply identity", `{"url":"repo"}`, "INVALID_URL"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := postJSON(router, "/projects", tt.body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), tt.code)
			})
		}
	})
}

func TestRespondFailure(t *testing.T) {
	router := testutil.SetupTestGin()
	router.GET("/api", func(c *gin.Context) {
		respondFailure(c, "wrapped", fmt.Errorf("lookup: %w", apierrors.NotFound("Project")))
	})
	router.GET("/plain", func(c *gin.Context) {
		respondFailure(c, "plain", errors.New("disk on fire"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Project not found")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "disk on fire", "internal causes are not leaked")
}
