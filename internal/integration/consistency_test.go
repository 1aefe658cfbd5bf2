package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/repo-project-id/internal/api/rest"
	"github.com/palemoky/repo-project-id/internal/config"
	"github.com/palemoky/repo-project-id/internal/database"
	"github.com/palemoky/repo-project-id/internal/loader"
	"github.com/palemoky/repo-project-id/internal/processor"
	"github.com/palemoky/repo-project-id/internal/projectid"
	"github.com/palemoky/repo-project-id/internal/testutil"
)

// crawler export split over two files, one array and one single object
var exports = map[string]string{
	"01-github.json": `[
		{"id": 23096959, "name": "go", "url": "https://github.com/golang/go", "authorName": "golang", "license": "BSD-3-Clause", "defaultBranch": "master"},
		{"id": 10270250, "name": "react", "url": "https://github.com/facebook/react", "authorName": "facebook", "license": "MIT"},
		{"id": 2325298, "url": "https://github.com/torvalds/linux", "license": "GPL-2.0"},
		{"id": 0, "name": "missing-url", "authorName": "nobody"}
	]`,
	"02-mirror.json": `{"name": "go", "url": "https://github.com/golang/go", "authorName": "golang"}`,
}

// setupTestEnv ingests the exports and returns a router over the result
func setupTestEnv(t *testing.T) (*gin.Engine, *database.Repository, *processor.Result) {
	dir := t.TempDir()
	for name, body := range exports {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	jsonLoader, err := loader.NewJSONLoader(dir)
	require.NoError(t, err)
	records, err := jsonLoader.LoadAll()
	require.NoError(t, err)

	db, repo := testutil.SetupTestDB(t)
	// one worker keeps file order, so the first record of a url wins
	result, err := processor.NewProcessor(repo, 1).Process(context.Background(), records)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
	}
	return rest.SetupRouter(cfg, db, repo), repo, result
}

func get(t *testing.T, router *gin.Engine, path string) (int, map[string]any) {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	dec := json.NewDecoder(w.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&body))
	return w.Code, body
}

func TestIngestSummary(t *testing.T) {
	_, repo, result := setupTestEnv(t)

	// the record without a url is dropped by the loader
	assert.Equal(t, int64(4), result.Total)
	assert.Equal(t, int64(3), result.Inserted)
	assert.Equal(t, int64(1), result.Duplicates)
	assert.Zero(t, result.Collisions)

	count, err := repo.CountProjects()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// TestDeriveMatchesRegistry verifies the derive endpoint, the registry and
// the library agree on every identifier
func TestDeriveMatchesRegistry(t *testing.T) {
	router, _, _ := setupTestEnv(t)

	tests := []struct {
		url  string
		want int64
	}{
		{"https://github.com/golang/go", 3899693812200549108},
		{"https://github.com/facebook/react", 7678739169976764440},
		{"https://github.com/torvalds/linux", 1925405573481347582},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			libID, err := projectid.GenerateFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, libID)

			code, derived := get(t, router, "/api/v1/id?url="+url.QueryEscape(tt.url))
			require.Equal(t, http.StatusOK, code)
			derivedID := derived["data"].(map[string]any)["id"]

			code, stored := get(t, router, "/api/v1/projects/lookup?url="+url.QueryEscape(tt.url))
			require.Equal(t, http.StatusOK, code)
			storedID := stored["data"].(map[string]any)["id"]

			assert.Equal(t, json.Number(strconv.FormatInt(tt.want, 10)), derivedID)
			assert.Equal(t, derivedID, storedID, "derive endpoint and registry should agree")

			code, byID := get(t, router, "/api/v1/projects/"+strconv.FormatInt(tt.want, 10))
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.url, byID["data"].(map[string]any)["url"])
		})
	}
}

func TestRegistryKeepsCrawlerFields(t *testing.T) {
	router, _, _ := setupTestEnv(t)

	code, body := get(t, router, "/api/v1/projects/3899693812200549108")
	require.Equal(t, http.StatusOK, code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "BSD-3-Clause", data["license"])
	assert.Equal(t, "master", data["default_branch"])
	assert.Equal(t, json.Number("23096959"), data["source_id"])

	metadata := data["metadata"].(map[string]any)
	assert.Equal(t, "golang", metadata["authorName"])
}

func TestStatsAfterIngest(t *testing.T) {
	router, _, _ := setupTestEnv(t)

	code, body := get(t, router, "/api/v1/stats")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, json.Number("3"), body["total_projects"])
	assert.Equal(t, json.Number("3"), body["total_authors"])
	assert.Equal(t, json.Number("0"), body["total_collisions"])

	code, body = get(t, router, "/api/v1/projects?author=torvalds")
	require.Equal(t, http.StatusOK, code)
	projects := body["data"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, "linux", projects[0].(map[string]any)["name"], "name is taken from the url")
}

// TestCrawlRankingMergesWithMetadata ingests a ranking export and a metadata
// export of the same repositories in one refreshing run
func TestCrawlRankingMergesWithMetadata(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"01-ranking.json": `{
			"URLImportanceList": [
				{"url": "https://github.com/golang/go", "importance": 120000, "finalProjectId": 23096959},
				{"url": "https://github.com/facebook/react", "importance": 225000, "finalProjectId": 10270250}
			],
			"languages": {"Go": 1, "JavaScript": 1, "HTML": 2},
			"finalProjectId": 10270250
		}`,
		"02-metadata.json": exports["01-github.json"],
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	jsonLoader, err := loader.NewJSONLoader(dir)
	require.NoError(t, err)
	records, err := jsonLoader.LoadAll()
	require.NoError(t, err)

	db, repo := testutil.SetupTestDB(t)
	proc := processor.NewProcessor(repo, 1)
	proc.SetRefresh(true)
	result, err := proc.Process(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Inserted)
	assert.Equal(t, int64(2), result.Refreshed, "metadata for ranked repositories refreshes them")

	crawl := jsonLoader.Crawl()
	require.NoError(t, repo.RecordCrawl(crawl.Languages, crawl.FinalProjectID))

	router := rest.SetupRouter(&config.Config{Server: config.ServerConfig{Mode: "test"}}, db, repo)

	code, body := get(t, router, "/api/v1/projects/3899693812200549108")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, json.Number("120000"), data["importance"])
	assert.Equal(t, "BSD-3-Clause", data["license"])
	assert.Equal(t, "master", data["default_branch"])

	code, body = get(t, router, "/api/v1/stats")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, json.Number("10270250"), body["last_crawled_source_id"])
	languages := body["by_language"].([]any)
	require.Len(t, languages, 3)
	assert.Equal(t, "HTML", languages[0].(map[string]any)["language"])
}
