package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit reads the "limit" query param, clamped to [1, max].
func ParseLimit(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ParseCursor reads the "cursor" query param as a message/post ID cursor.
// Returns 0 when absent or malformed, which callers treat as "from the top".
func ParseCursor(c *gin.Context) uint64 {
	raw := c.Query("cursor")
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParsePage reads "page" and "limit" query params for offset pagination.
func ParsePage(c *gin.Context, defLimit, maxLimit int) (page, limit int) {
	page = 1
	if raw := c.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	limit = ParseLimit(c, defLimit, maxLimit)
	return page, limit
}
