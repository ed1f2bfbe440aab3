package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a limit/offset window over an ordered listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to [1, MaxPageSize] items and a non-negative
// offset. A zero limit falls back to defaultLimit.
func (p Page) Normalize(defaultLimit int) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// PageFromQuery reads ?limit= and ?offset= from the request.
func PageFromQuery(c *gin.Context, defaultLimit int) (Page, error) {
	var p Page
	var err error

	if raw := c.Query("limit"); raw != "" {
		if p.Limit, err = strconv.Atoi(raw); err != nil || p.Limit < 1 {
			return Page{}, Invalid("limit must be a positive integer")
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if p.Offset, err = strconv.Atoi(raw); err != nil || p.Offset < 0 {
			return Page{}, Invalid("offset must be a non-negative integer")
		}
	}
	return p.Normalize(defaultLimit), nil
}

// UintParam parses a numeric path parameter such as :id.
func UintParam(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, Invalid("%s must be a positive integer", name)
	}
	return uint(n), nil
}
