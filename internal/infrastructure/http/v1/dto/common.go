// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// --- Query parameters ---

// RangeQuery is an inclusive YYYY-MM-DD date range. Empty bounds are open.
type RangeQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

// TopNQuery selects the first N results of a ranking.
type TopNQuery struct {
	RangeQuery
	N int `form:"n" binding:"omitempty,min=1"`
}

// StoreQuery narrows a range query to one store.
type StoreQuery struct {
	RangeQuery
	Store *int64 `form:"store" binding:"omitempty,min=1"`
}

// InventoryQuery narrows an inventory query to a warehouse and/or product.
type InventoryQuery struct {
	RangeQuery
	Warehouse *int64 `form:"warehouse" binding:"omitempty,min=1"`
	Product   *int64 `form:"product" binding:"omitempty,min=1"`
}

// BrowseQuery selects how many rows to show per table and, for the multi
// table endpoint, which tables.
type BrowseQuery struct {
	Limit  int    `form:"limit"`
	Tables string `form:"tables"`
}

// --- Responses ---

// ListResponse wraps a result list.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// NewListResponse wraps items; a nil slice is returned as an empty list.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Count: len(items)}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
