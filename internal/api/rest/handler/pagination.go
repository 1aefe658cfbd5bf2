package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the database offset
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePagination reads ?page= and ?page_size=. Invalid values fall back to
// the defaults and page_size is capped at maxPageSize.
func ParsePagination(c *gin.Context) PaginationParams {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	return PaginationParams{Page: page, PageSize: pageSize}
}

// NewPaginationResponse wraps one page of data with its position in the set
func NewPaginationResponse(data any, params PaginationParams, total int64) gin.H {
	totalPages := (total + int64(params.PageSize) - 1) / int64(params.PageSize)

	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":        params.Page,
			"page_size":   params.PageSize,
			"total":       total,
			"total_pages": totalPages,
			"has_next":    int64(params.Page) < totalPages,
		},
	}
}
