package filedock_test

import (
	"math"
	"testing"

	"github.com/sagarc03/filedock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name                string
		page, limit         int
		wantPage, wantLimit int
	}{
		{name: "defaults", page: 0, limit: 0, wantPage: 1, wantLimit: 20},
		{name: "negative page", page: -3, limit: 10, wantPage: 1, wantLimit: 10},
		{name: "limit over max", page: 2, limit: 500, wantPage: 2, wantLimit: 100},
		{name: "negative limit", page: 1, limit: -5, wantPage: 1, wantLimit: 1},
		{name: "in range", page: 4, limit: 50, wantPage: 4, wantLimit: 50},
		{name: "page over max", page: math.MaxInt, limit: 100, wantPage: filedock.MaxPage, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := filedock.NormalizePage(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestPageRequest_Offset(t *testing.T) {
	req := filedock.PageRequest{Page: 3, Limit: 25}.Normalize()
	assert.Equal(t, 50, req.Offset())
}

func TestPageRequest_HugePageIsPastTheEnd(t *testing.T) {
	req := filedock.PageRequest{Page: math.MaxInt, Limit: 20}.Normalize()
	assert.Positive(t, req.Offset())

	p := filedock.NewPagination(req.Page, req.Limit, 3)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, limit, total int
		want               filedock.Pagination
	}{
		{
			name: "empty result",
			page: 1, limit: 20, total: 0,
			want: filedock.Pagination{Page: 1, Limit: 20, Total: 0, TotalPages: 0},
		},
		{
			name: "exact multiple",
			page: 2, limit: 10, total: 20,
			want: filedock.Pagination{Page: 2, Limit: 10, Total: 20, TotalPages: 2, HasPrev: true},
		},
		{
			name: "first of several",
			page: 1, limit: 10, total: 25,
			want: filedock.Pagination{Page: 1, Limit: 10, Total: 25, TotalPages: 3, HasNext: true},
		},
		{
			name: "past the end",
			page: 9, limit: 10, total: 25,
			want: filedock.Pagination{Page: 9, Limit: 10, Total: 25, TotalPages: 3, HasPrev: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filedock.NewPagination(tt.page, tt.limit, tt.total))
		})
	}
}

func TestParseSortField(t *testing.T) {
	got, err := filedock.ParseSortField("", filedock.SortByCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, filedock.SortByCreatedAt, got)

	got, err = filedock.ParseSortField("size", filedock.SortByCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, filedock.SortBySize, got)

	_, err = filedock.ParseSortField("storagePath", filedock.SortByCreatedAt)
	assert.ErrorContains(t, err, "invalid sort field")
}

func TestParseSortOrder(t *testing.T) {
	got, err := filedock.ParseSortOrder("", filedock.SortDesc)
	require.NoError(t, err)
	assert.Equal(t, filedock.SortDesc, got)

	got, err = filedock.ParseSortOrder("asc", filedock.SortDesc)
	require.NoError(t, err)
	assert.Equal(t, filedock.SortAsc, got)

	_, err = filedock.ParseSortOrder("ASC", filedock.SortDesc)
	assert.Error(t, err)
}
