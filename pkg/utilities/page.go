package utilities

import (
	"math"
	"net/http"
	"strconv"
)

const MaxPageLimit = 100

// MaxPage keeps (page-1)*limit well inside the range of a postgres OFFSET.
const MaxPage = math.MaxInt32 / MaxPageLimit

// PageParams are resolved page/limit query values.
type PageParams struct {
	Page  int
	Limit int
}

func (p PageParams) Offset() int { return (p.Page - 1) * p.Limit }

// PageFromRequest reads ?page= and ?limit=; unusable values fall back to 1 and defLimit.
func PageFromRequest(r *http.Request, defLimit int) PageParams {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return PageParams{Page: page, Limit: limit}
}

// Pagination is the page metadata returned next to list payloads.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
	Limit       int   `json:"limit"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(p PageParams, total int64) Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		Total:       total,
		HasNext:     p.Page < totalPages,
		HasPrev:     p.Page > 1,
		Limit:       p.Limit,
	}
}
