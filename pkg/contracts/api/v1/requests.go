// Package api contains the query API contract definitions.
// Version v1 represents the current stable API version.
package api

// PaginationRequest represents common paging parameters.
type PaginationRequest struct {
	Limit  int `json:"limit" query:"limit" validate:"min=1,max=5000"`
	Offset int `json:"offset" query:"offset" validate:"min=0"`
}

// DateRangeRequest represents an inclusive date range in requests.
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// EnrichedQueryRequest filters the enriched table endpoint.
type EnrichedQueryRequest struct {
	PaginationRequest
	DateRangeRequest
	State    string `json:"state" query:"state"`
	Category string `json:"category" query:"category" validate:"omitempty,vehicle_category"`
	Region   string `json:"region" query:"region" validate:"omitempty,oneof=North South East West Central Northeast Northwest"`
}

// StateDetailRequest names one state on the state detail endpoint.
type StateDetailRequest struct {
	State string `json:"state" param:"state" validate:"required,min=2,max=64"`
}
