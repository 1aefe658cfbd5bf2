package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arrayExport = `[
  {"id": 23096959, "versionTime": "1700000000000", "versionHash": "abc123", "license": "BSD 3-Clause \"New\" or \"Revised\" License",
   "name": "go", "url": "https://github.com/golang/go", "authorName": "golang", "authorMail": "", "defaultBranch": "master"},
  {"id": 10270250, "name": "react", "url": "https://github.com/facebook/react", "authorName": "facebook", "defaultBranch": "main"},
  {"id": 1, "name": "orphan", "url": "", "authorName": "nobody"}
]`

const objectExport = `{"id": 2325298, "name": "linux", "url": "https://github.com/torvalds/linux", "authorName": "torvalds", "license": "Other"}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadArrayFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "export.json", arrayExport)

	l, err := NewJSONLoader(path)
	require.NoError(t, err)

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "record without url is skipped")

	assert.Equal(t, "go", records[0].Name)
	assert.Equal(t, "golang", records[0].AuthorName)
	assert.Equal(t, int64(23096959), records[0].ID)
	assert.Equal(t, "master", records[0].DefaultBranch)
	assert.Equal(t, path, records[0].Source)
	assert.Contains(t, string(records[0].Raw), `"versionHash": "abc123"`)
	assert.Equal(t, "react", records[1].Name)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", objectExport)
	writeFile(t, dir, "a.json", arrayExport)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	l, err := NewJSONLoader(dir)
	require.NoError(t, err)
	assert.Len(t, l.Files(), 2)

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	// files are read in lexical order
	assert.Equal(t, "go", records[0].Name)
	assert.Equal(t, "linux", records[2].Name)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.json", "  \n")

	l, err := NewJSONLoader(path)
	require.NoError(t, err)

	records, err := l.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := NewJSONLoader(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("invalid json names the file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "broken.json", `[{"name": `)
		l, err := NewJSONLoader(path)
		require.NoError(t, err)

		_, err = l.LoadAll()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken.json")
	})

	t.Run("wrong field type", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "typed.json", `[{"id": "not-a-number", "url": "https://x/y/z"}]`)
		l, err := NewJSONLoader(path)
		require.NoError(t, err)

		_, err = l.LoadAll()
		assert.Error(t, err)
	})
}

const crawlExportJSON = `{
  "URLImportanceList": [
    {"url": "https://github.com/golang/go", "importance": 120000, "finalProjectId": 23096959},
    {"url": "", "importance": 3, "finalProjectId": 5},
    {"url": "https://github.com/facebook/react", "importance": 225000, "finalProjectId": 10270250}
  ],
  "languages": {"Go": 1, "JavaScript": 1, "Shell": 2},
  "finalProjectId": 10270250
}`

func TestLoadCrawlExport(t *testing.T) {
	path := writeFile(t, t.TempDir(), "crawl.json", crawlExportJSON)

	l, err := NewJSONLoader(path)
	require.NoError(t, err)

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "entry without url is skipped")

	assert.Equal(t, "https://github.com/golang/go", records[0].URL)
	assert.Equal(t, int64(23096959), records[0].ID)
	require.NotNil(t, records[0].Importance)
	assert.Equal(t, int64(120000), *records[0].Importance)
	assert.Empty(t, records[0].Name, "crawl entries carry no name")
	assert.Nil(t, records[0].Raw)
	assert.Equal(t, int64(225000), *records[1].Importance)

	crawl := l.Crawl()
	assert.Equal(t, 1, crawl.Files)
	assert.Equal(t, int64(10270250), crawl.FinalProjectID)
	assert.Equal(t, map[string]int{"Go": 1, "JavaScript": 1, "Shell": 2}, crawl.Languages)
}

func TestLoadMixedDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", arrayExport)
	writeFile(t, dir, "b.json", crawlExportJSON)
	writeFile(t, dir, "c.json", `{"URLImportanceList": [], "languages": {"Go": 4}, "finalProjectId": 99}`)

	l, err := NewJSONLoader(dir)
	require.NoError(t, err)

	records, err := l.LoadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Nil(t, records[0].Importance, "metadata records carry no importance")
	assert.NotNil(t, records[2].Importance)

	crawl := l.Crawl()
	assert.Equal(t, 2, crawl.Files)
	assert.Equal(t, int64(99), crawl.FinalProjectID, "last crawl file wins")
	assert.Equal(t, 5, crawl.Languages["Go"])
}

func TestMetadataOnlyHasEmptyCrawl(t *testing.T) {
	path := writeFile(t, t.TempDir(), "b.json", objectExport)

	l, err := NewJSONLoader(path)
	require.NoError(t, err)
	_, err = l.LoadAll()
	require.NoError(t, err)

	assert.Zero(t, l.Crawl().Files)
	assert.Empty(t, l.Crawl().Languages)
}

func TestLoadBrokenCrawlExport(t *testing.T) {
	path := writeFile(t, t.TempDir(), "crawl.json", `{"URLImportanceList": [{"url": 5}]}`)

	l, err := NewJSONLoader(path)
	require.NoError(t, err)

	_, err = l.LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl export")
}
