package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/palemoky/repo-project-id/internal/logger"
)

// ProjectMetadata is one repository record as exported by the crawler
type ProjectMetadata struct {
	ID            int64  `json:"id"` // Hosting provider id, not the derived project id
	VersionTime   string `json:"versionTime"`
	VersionHash   string `json:"versionHash"`
	License       string `json:"license"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	AuthorName    string `json:"authorName"`
	AuthorMail    string `json:"authorMail"`
	DefaultBranch string `json:"defaultBranch"`
}

// RecordWithSource includes the file a record was loaded from
type RecordWithSource struct {
	ProjectMetadata
	Importance *int64 // Stargazer count, set for crawl list entries
	Raw        json.RawMessage
	Source     string
}

// CrawlSummary holds the crawl-level fields of the crawl exports read so far
type CrawlSummary struct {
	Languages      map[string]int // Repositories per language, summed across files
	FinalProjectID int64          // Last repository the crawler visited
	Files          int
}

// crawlExport is the crawler's ranked listing: urls with their importance,
// a language histogram and the id the crawl stopped at
type crawlExport struct {
	URLImportanceList []crawlEntry   `json:"URLImportanceList"`
	Languages         map[string]int `json:"languages"`
	FinalProjectID    int64          `json:"finalProjectId"`
}

type crawlEntry struct {
	URL            string `json:"url"`
	Importance     int64  `json:"importance"`
	FinalProjectID int64  `json:"finalProjectId"`
}

// JSONLoader loads crawler exports from a file or a directory of files
type JSONLoader struct {
	files []string
	crawl CrawlSummary
}

// NewJSONLoader creates a loader for path. Directories are scanned
// (non-recursively) for *.json files in lexical order.
func NewJSONLoader(path string) (*JSONLoader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
	}

	if !info.IsDir() {
		return newLoader([]string{path}), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)

	return newLoader(files), nil
}

func newLoader(files []string) *JSONLoader {
	return &JSONLoader{files: files, crawl: CrawlSummary{Languages: map[string]int{}}}
}

// Files returns the files the loader will read
func (l *JSONLoader) Files() []string {
	return l.files
}

// Crawl returns what the crawl exports read by LoadAll carried besides urls
func (l *JSONLoader) Crawl() CrawlSummary {
	return l.crawl
}

// LoadAll loads every record from every file. A file is either a metadata
// export (an array of records or a single record) or a crawl export.
// Records without a url cannot be identified and are skipped.
func (l *JSONLoader) LoadAll() ([]RecordWithSource, error) {
	var all []RecordWithSource

	for _, file := range l.files {
		records, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}

	return all, nil
}

func (l *JSONLoader) loadFile(path string) ([]RecordWithSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if isCrawlExport(data) {
		return l.loadCrawl(path, data)
	}

	raws, err := splitRecords(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	records := make([]RecordWithSource, 0, len(raws))
	for i, raw := range raws {
		var meta ProjectMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("failed to parse %s record %d: %w", path, i, err)
		}
		if strings.TrimSpace(meta.URL) == "" {
			logger.Warn("Skipping record without url",
				zap.String("file", path),
				zap.Int("index", i),
				zap.String("name", meta.Name),
			)
			continue
		}
		records = append(records, RecordWithSource{
			ProjectMetadata: meta,
			Raw:             raw,
			Source:          path,
		})
	}

	return records, nil
}

func (l *JSONLoader) loadCrawl(path string, data []byte) ([]RecordWithSource, error) {
	var export crawlExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse crawl export %s: %w", path, err)
	}

	records := make([]RecordWithSource, 0, len(export.URLImportanceList))
	for i, entry := range export.URLImportanceList {
		if strings.TrimSpace(entry.URL) == "" {
			logger.Warn("Skipping crawl entry without url", zap.String("file", path), zap.Int("index", i))
			continue
		}
		importance := entry.Importance
		records = append(records, RecordWithSource{
			ProjectMetadata: ProjectMetadata{ID: entry.FinalProjectID, URL: entry.URL},
			Importance:      &importance,
			Source:          path,
		})
	}

	for lang, count := range export.Languages {
		l.crawl.Languages[lang] += count
	}
	l.crawl.FinalProjectID = export.FinalProjectID
	l.crawl.Files++

	logger.Debug("Loaded crawl export",
		zap.String("file", path),
		zap.Int("entries", len(records)),
		zap.Int("languages", len(export.Languages)),
	)
	return records, nil
}

// isCrawlExport reports whether data is a single object with a URLImportanceList
func isCrawlExport(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return false
	}
	_, ok := keys["URLImportanceList"]
	return ok
}

// splitRecords accepts either a JSON array of objects or a single object
func splitRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}
