package types

import (
	"github.com/samber/lo"

	ierr "github.com/inkpress/inkpress/internal/errors"
)

const (
	FilterDefaultLimit = 50
	FilterMaxLimit     = 1000
	FilterDefaultSort  = "created_at"
	FilterDefaultOrder = "desc"
)

// BaseFilter is the minimal query surface every entity filter implements.
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	GetStatus() string
	GetSort() string
	GetOrder() string
	Validate() error
}

// QueryFilter carries pagination and ordering for list queries.
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit"`
	Offset *int    `json:"offset,omitempty" form:"offset"`
	Status *Status `json:"status,omitempty" form:"status"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order"`
}

// NewDefaultQueryFilter returns the standard pagination defaults.
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FilterDefaultLimit),
		Offset: lo.ToPtr(0),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr(FilterDefaultSort),
		Order:  lo.ToPtr(FilterDefaultOrder),
	}
}

// NewNoLimitQueryFilter returns a filter without pagination, for internal
// callers that need the full result set.
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr(FilterDefaultSort),
		Order:  lo.ToPtr(FilterDefaultOrder),
	}
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return FilterDefaultLimit
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) GetStatus() string {
	if f == nil || f.Status == nil {
		return string(StatusPublished)
	}
	return string(*f.Status)
}

func (f *QueryFilter) GetSort() string {
	if f == nil || f.Sort == nil {
		return FilterDefaultSort
	}
	return *f.Sort
}

func (f *QueryFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return FilterDefaultOrder
	}
	return *f.Order
}

// IsUnlimited reports whether the filter opts out of pagination.
func (f *QueryFilter) IsUnlimited() bool {
	return f != nil && f.Limit == nil && f.Offset == nil
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 0 || *f.Limit > FilterMaxLimit) {
		return ierr.NewErrorf("limit must be between 0 and %d", FilterMaxLimit).
			WithHint("Invalid pagination limit").
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("offset must be non-negative").
			WithHint("Invalid pagination offset").
			Mark(ierr.ErrValidation)
	}
	if f.Order != nil && *f.Order != "asc" && *f.Order != "desc" {
		return ierr.NewError("order must be asc or desc").
			WithHint("Invalid sort order").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaginationResponse echoes the applied pagination in list responses.
type PaginationResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ListResponse is the standard envelope of list endpoints.
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// NewListResponse builds the envelope from items and the applied filter.
func NewListResponse[T any](items []T, total int, f BaseFilter) ListResponse[T] {
	return ListResponse[T]{
		Items: items,
		Pagination: PaginationResponse{
			Limit:  f.GetLimit(),
			Offset: f.GetOffset(),
			Total:  total,
		},
	}
}
