// Package pagination splits the analysis and saved-graph listings into pages
package pagination

import "fmt"

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params selects one page. Offset is derived from Page and PerPage.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// NewParams clamps page to at least 1 and perPage to 1..MaxPerPage. A
// non-positive perPage selects DefaultPerPage.
func NewParams(page, perPage int) Params {
	page = max(page, 1)
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage}
}

type Response[T any] struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
	Results      []T `json:"results"`
}

// Paginate copies the items on page p. Pages past the end are empty, never nil.
func Paginate[T any](items []T, p Params) Response[T] {
	n := len(items)
	from := min(p.Offset, n)
	to := min(from+p.PerPage, n)

	results := make([]T, to-from)
	copy(results, items[from:to])

	return Response[T]{
		Page:         p.Page,
		PerPage:      p.PerPage,
		TotalPages:   CalculateTotalPages(n, p.PerPage),
		TotalResults: n,
		Results:      results,
	}
}

// Footer describes the position of r, or is empty when everything fits on
// one page
func (r Response[T]) Footer() string {
	if r.TotalPages <= 1 {
		return ""
	}
	return fmt.Sprintf("page %d of %d (%d total)", r.Page, r.TotalPages, r.TotalResults)
}

// CalculateTotalPages counts pages of perPage items. An empty listing is
// still one page; a non-positive perPage yields zero.
func CalculateTotalPages(totalResults, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return max(1, (totalResults+perPage-1)/perPage)
}
