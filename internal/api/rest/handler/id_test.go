package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/repo-project-id/internal/testutil"
)

func TestDeriveFromURL(t *testing.T) {
	router := testutil.SetupTestGin()
	h := NewIDHandler(nil)
	router.GET("/id", h.DeriveFromURL)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		checkResponse  func(*testing.T, map[string]any)
	}{
		{
			name:           "example repository",
			query:          "?url=" + url.QueryEscape("https://example.com/owner/repo"),
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp map[string]any) {
				data := resp["data"].(map[string]any)
				// json.Number keeps the full int64
				assert.Equal(t, json.Number("6116702254140746537"), data["id"])
				assert.Equal(t, "54e2e44adee3eb29", data["hex"])
				assert.Equal(t, "repo", data["name"])
				assert.Equal(t, "owner", data["author"])
				assert.Equal(t, "md5-nibble-v1", data["scheme"])
			},
		},
		{
			name:           "missing url",
			query:          "",
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp map[string]any) {
				assert.Equal(t, "INVALID_REQUEST", resp["error"].(map[string]any)["code"])
			},
		},
		{
			name:           "url without separators",
			query:          "?url=repo",
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp map[string]any) {
				assert.Equal(t, "INVALID_URL", resp["error"].(map[string]any)["code"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkResponse(t, decodeNumbers(t, w.Body.String()))
		})
	}
}

func TestDeriveTriple(t *testing.T) {
	router := testutil.SetupTestGin()
	h := NewIDHandler(nil)
	router.POST("/id", h.DeriveTriple)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedID     json.Number
	}{
		{"explicit triple", `{"name":"repo","author":"owner","url":"https://example.com/owner/repo"}`, http.StatusOK, "6116702254140746537"},
		{"empty strings", `{"name":"","author":"","url":""}`, http.StatusOK, "4623790510225019213"},
		{"empty object", `{}`, http.StatusOK, "4623790510225019213"},
		{"concatenation collides", `{"name":"AB","author":"","url":"C"}`, http.StatusOK, "810369639751355895"},
		{"not json", `name=repo`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/id", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedID != "" {
				resp := decodeNumbers(t, w.Body.String())
				assert.Equal(t, tt.expectedID, resp["data"].(map[string]any)["id"])
			}
		})
	}
}

func decodeNumbers(t *testing.T, body string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var resp map[string]any
	require.NoError(t, dec.Decode(&resp))
	return resp
}
