package service

import (
	"strconv"
	"strings"

	"yatube/internal/models"
)

// DefaultPageSize is used when a Paginator is built with a non-positive size.
const DefaultPageSize = 10

// Page is one resolved page of a post listing.
type Page struct {
	Items      []*models.Post
	Number     int
	TotalPages int
	Total      int64
	PageSize   int
}

func (p *Page) HasPrevious() bool { return p.Number > 1 }
func (p *Page) HasNext() bool     { return p.Number < p.TotalPages }
func (p *Page) HasOtherPages() bool {
	return p.TotalPages > 1
}
func (p *Page) PreviousNumber() int { return p.Number - 1 }
func (p *Page) NextNumber() int     { return p.Number + 1 }

// Numbers lists every page number, for the paginator links.
func (p *Page) Numbers() []int {
	out := make([]int, p.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Paginator turns a raw ?page= value into a page window over a listing.
type Paginator struct {
	PageSize int
}

// NewPaginator returns a Paginator with the given page size.
func NewPaginator(size int) Paginator {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Paginator{PageSize: size}
}

// TotalPages is at least 1 so an empty listing still renders page 1.
func (p Paginator) TotalPages(total int64) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Resolve maps raw to a page number: missing or non-numeric means the first page,
// any out-of-range number means the last page.
func (p Paginator) Resolve(raw string, total int64) (number, offset int) {
	last := p.TotalPages(total)

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		number = 1
	case n < 1 || n > last:
		number = last
	default:
		number = n
	}
	return number, (number - 1) * p.PageSize
}
