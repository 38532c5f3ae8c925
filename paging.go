package filedock

import (
	"fmt"
	"math"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// MaxPage keeps page*limit and the row offset within int.
	MaxPage = math.MaxInt / MaxPageLimit
)

type SortField string

const (
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortBySize      SortField = "size"
	SortByMimeType  SortField = "mimeType"
)

func (f SortField) IsValid() bool {
	switch f {
	case SortByName, SortByCreatedAt, SortByUpdatedAt, SortBySize, SortByMimeType:
		return true
	default:
		return false
	}
}

// ParseSortField returns def for an empty string.
func ParseSortField(s string, def SortField) (SortField, error) {
	if s == "" {
		return def, nil
	}
	f := SortField(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid sort field: %s (valid: name, createdAt, updatedAt, size, mimeType)", s)
	}
	return f, nil
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder returns def for an empty string.
func ParseSortOrder(s string, def SortOrder) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return def, nil
	case SortAsc, SortDesc:
		return SortOrder(s), nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (valid: asc, desc)", s)
	}
}

// PageRequest is a 1-indexed page request. Repositories expect it normalized.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
}

// NormalizePage clamps page to [1, MaxPage] and limit to [1, MaxPageLimit],
// substituting defaults for zero values.
func NormalizePage(page, limit int) (int, int) {
	page = max(1, min(MaxPage, page))
	if limit == 0 {
		limit = DefaultPageLimit
	}
	limit = max(1, min(MaxPageLimit, limit))
	return page, limit
}

func (p PageRequest) Normalize() PageRequest {
	p.Page, p.Limit = NormalizePage(p.Page, p.Limit)
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page metadata: totalPages = ceil(total/limit),
// hasNext = page*limit < total, hasPrev = page > 1.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page*limit < total,
		HasPrev:    page > 1,
	}
}

type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func newPage[T any](data []T, req PageRequest, total int) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Pagination: NewPagination(req.Page, req.Limit, total)}
}
