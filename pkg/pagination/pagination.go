// Package pagination reads page and limit query parameters for list endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// FeedLimit is the default size of short newest-first feeds such as the
	// dashboard activity list.
	FeedLimit = 10
)

// Params is a validated page request. Offset is derived from Page and Limit.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads ?page= and ?limit=. Missing or invalid values fall back to the
// defaults and limit is capped at MaxLimit.
func Parse(c *gin.Context) Params {
	page := positiveQuery(c, "page", DefaultPage)
	limit := Limit(c, DefaultLimit)
	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Limit reads only ?limit=, for endpoints that return a single capped slice.
func Limit(c *gin.Context, fallback int) int {
	return min(positiveQuery(c, "limit", fallback), MaxLimit)
}

func positiveQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
