package models

// ListOptions narrows and paginates list calls.
type ListOptions struct {
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	Sort       string `json:"sort,omitempty"`
	Order      string `json:"order,omitempty"` // asc or desc
	Search     string `json:"search,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
}

// Page is one page of a listed collection, with the total count across all pages.
type Page[T any] struct {
	Items []*T `json:"items"`
	Total int  `json:"total"`
}
