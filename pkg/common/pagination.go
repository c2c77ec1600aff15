package common

import (
	"net/http"
	"strconv"
)

const maxPageSize = 100

// PaginationParams carries the page window a caller asked for
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultPaginationParams returns the window used when the caller sends
// nothing
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Page: 1, PageSize: 20}
}

// ExtractPaginationParams reads page and page_size from the query string,
// clamping page_size to the server maximum
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}
	if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil && ps > 0 {
			if ps > maxPageSize {
				ps = maxPageSize
			}
			params.PageSize = ps
		}
	}

	return params
}

// CalculateTotalPages returns how many pages a collection of total items
// spans
func CalculateTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// PaginatedResult is one page of items plus its position in the
// collection
type PaginatedResult struct {
	Items      interface{}     `json:"items"`
	Pagination *PaginationInfo `json:"pagination"`
}

// NewPaginatedResult builds a page result with its pagination metadata
func NewPaginatedResult(items interface{}, page, pageSize, total int) *PaginatedResult {
	totalPages := CalculateTotalPages(total, pageSize)
	return &PaginatedResult{
		Items: items,
		Pagination: &PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}
