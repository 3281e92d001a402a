package helpers

import (
	"strconv"

	"github.com/ai2c/amap/internal/app/models/dto"
	"github.com/gin-gonic/gin"
)

// Page sizes of list endpoints. Pages are 1-based.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1
)

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, size
}

// CalculateOffsetLimit turns a page and size into squirrel Offset/Limit values
func CalculateOffsetLimit(page, size int) (offset uint64, limit int) {
	page, limit = normalizePage(page, size)
	return uint64((page - 1) * limit), limit
}

// NewPaginationInfo builds the pagination block of a list response. An empty
// result still reports one page, and the current page never passes the last.
func NewPaginationInfo(totalItems int64, page, size int) dto.PaginationInfo {
	page, size = normalizePage(page, size)

	totalPages := int((totalItems + int64(size) - 1) / int64(size))
	if totalPages == 0 && page == 1 {
		totalPages = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	return dto.PaginationInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams reads `page` and `size` from the query string. Invalid
// or out-of-range values fall back to the defaults.
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("size"))
	return normalizePage(page, size)
}
