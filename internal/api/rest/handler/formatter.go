package handler

import (
	"github.com/palemoky/repo-project-id/internal/database"
	"github.com/palemoky/repo-project-id/internal/projectid"
)

// formatProject formats a registry row for API response. The raw crawler
// record is only included when withMetadata is set.
func formatProject(p *database.Project, withMetadata bool) map[string]any {
	result := map[string]any{
		"id":     p.ID,
		"hex":    projectid.FormatHex(p.ID),
		"name":   p.Name,
		"author": p.Author,
		"url":    p.URL,
		"scheme": p.Scheme,
	}
	if p.SourceID != nil {
		result["source_id"] = *p.SourceID
	}
	if p.Importance != nil {
		result["importance"] = *p.Importance
	}
	if p.License != nil {
		result["license"] = *p.License
	}
	if p.VersionTime != nil {
		result["version_time"] = *p.VersionTime
	}
	if p.VersionHash != nil {
		result["version_hash"] = *p.VersionHash
	}
	if p.DefaultBranch != nil {
		result["default_branch"] = *p.DefaultBranch
	}
	if withMetadata && len(p.Metadata) > 0 {
		result["metadata"] = p.Metadata
	}
	return result
}

// formatCollision formats a recorded collision for API response.
func formatCollision(c *database.Collision) map[string]any {
	return map[string]any{
		"id":           c.ProjectID,
		"hex":          projectid.FormatHex(c.ProjectID),
		"existing_url": c.ExistingURL,
		"new_url":      c.NewURL,
		"detected_at":  c.CreatedAt,
	}
}

// formatDerivation formats a freshly derived identifier.
func formatDerivation(id int64, name, author, url string) map[string]any {
	return map[string]any{
		"id":     id,
		"hex":    projectid.FormatHex(id),
		"name":   name,
		"author": author,
		"url":    url,
		"scheme": projectid.Scheme,
	}
}
