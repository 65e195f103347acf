package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mx-space/footprint/internal/pkg/response"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 500
	// MaxPage keeps Offset within int for every accepted limit.
	MaxPage = math.MaxInt / MaxLimit
)

// Query holds parsed pagination parameters.
type Query struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before this page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// FromContext extracts and validates page/limit from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.Query("page"), DefaultPage)
	limit := parseIntOr(c.Query("limit"), DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Query{Page: page, Limit: limit}
}

// Meta builds the pagination block for a page holding returned rows out of total.
func Meta(q Query, returned int, total int64) response.Pagination {
	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return response.Pagination{
		CurrentPage:   q.Page,
		TotalPages:    totalPages,
		TotalVisitors: total,
		HasNext:       int64(q.Offset()+returned) < total,
		HasPrev:       q.Page > 1,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
