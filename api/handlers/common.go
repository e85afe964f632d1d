package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// parseLimit reads the limit query parameter, falling back to def and
// clamping to max.
func parseLimit(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseTime reads an RFC3339 query parameter. Returns nil when absent,
// an error flag when malformed.
func parseTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	t = t.UTC()
	return &t, true
}
