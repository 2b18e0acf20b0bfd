/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Page is one page of a paged listing together with the size of the full
// result.
type Page[T any] struct {
	// Items holds at most PageSize entities, in result order.
	Items []T
	// Page is the 1-based page number that was requested.
	Page int
	// PageSize is the requested page size; 0 means the listing was not paged.
	PageSize int
	// Total counts every match of the filter, across all pages.
	Total int64
}

// NewPage assembles a page. Page numbers below 1 are reported as 1.
func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 0 {
		pageSize = 0
	}
	return Page[T]{Items: items, Page: page, PageSize: pageSize, Total: total}
}

// TotalPages returns the number of pages the full result spans.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 {
		if p.Total > 0 {
			return 1
		}
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrevious reports whether a page precedes this one.
func (p Page[T]) HasPrevious() bool {
	return p.Page > 1 && p.PageSize > 0
}

// Skip returns the number of results before the given page. Pages at or
// below 1 start at the first result.
func Skip(page, pageSize int) int64 {
	if pageSize <= 0 || page <= 1 {
		return 0
	}
	return int64(page-1) * int64(pageSize)
}
