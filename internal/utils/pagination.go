package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"

	pkgutils "github.com/healthpoint/consent-access-api/pkg/utils"
)

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// NewPaginationParams creates a new pagination params with defaults
func NewPaginationParams(limit, offset int) *PaginationParams {
	return &PaginationParams{
		Limit:  pkgutils.ValidateLimit(limit),
		Offset: pkgutils.ValidateOffset(offset),
	}
}

// PaginationFromQuery reads limit and offset query parameters, falling back
// to defaults on absent or malformed values
func PaginationFromQuery(c *gin.Context) *PaginationParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return NewPaginationParams(limit, offset)
}

// GetPageNumber calculates the current page number (1-indexed)
func (p *PaginationParams) GetPageNumber() int {
	if p.Limit == 0 {
		return 1
	}
	return (p.Offset / p.Limit) + 1
}

// GetNextOffset calculates the offset for the next page
func (p *PaginationParams) GetNextOffset() int {
	return p.Offset + p.Limit
}
