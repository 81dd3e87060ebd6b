package book

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 5
)

// Pagination is the page window applied to a list query.
type Pagination struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	Skip       int `json:"skip"`
}

// Paginate turns the raw page and limit query values into a Pagination.
// Absent, non-numeric and non-positive values fall back to the defaults.
// A maxSize above zero caps the page size. A skip too large for an int is
// clamped to math.MaxInt, which selects an empty page.
func Paginate(page, limit string, maxSize int) Pagination {
	p := positiveOr(page, DefaultPage)
	size := positiveOr(limit, DefaultPageSize)
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	skip := math.MaxInt
	if p-1 <= math.MaxInt/size {
		skip = (p - 1) * size
	}
	return Pagination{
		PageNumber: p,
		PageSize:   size,
		Skip:       skip,
	}
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}
