package model

// ErrorResponse is the error envelope returned by every /api endpoint.
// Gate denials additionally fill Message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// FailureResponse is the error envelope of the key management endpoints,
// which always carry a success flag.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SuccessResponse is returned by mutating endpoints that have no resource
// to echo back.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Pagination describes one page of a paged listing.
type Pagination struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	HasMore bool  `json:"has_more"`
}

// NewPagination describes page (1-based) of total items split into pages
// of limit.
func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: limit > 0 && int64(page)*int64(limit) < total,
	}
}
