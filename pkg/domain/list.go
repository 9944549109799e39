package domain

// Pagination bounds for list operations.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListParams selects a page of principals. Search matches username or email
// as a case-insensitive substring; Status, when set, must match exactly.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Status   string
}

// Normalize applies defaults and clamps the page size to MaxPageSize
// regardless of the requested value.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the row offset for the normalized page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is a paginated result envelope.
type Page struct {
	Results    []Principal `json:"results"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
}

// NewPage builds the envelope for one page of results.
func NewPage(results []Principal, params ListParams, total int) Page {
	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	return Page{
		Results:    results,
		Page:       params.Page,
		Limit:      params.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
