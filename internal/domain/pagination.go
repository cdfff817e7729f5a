package domain

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

type PaginationParams struct {
	Page    int `json:"page" query:"page"`
	PerPage int `json:"per_page" query:"per_page"`
}

type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPaginatedResponse[T any](data []T, page, perPage int, totalItems int64) PaginatedResponse[T] {
	totalPages := int((totalItems + int64(perPage) - 1) / int64(perPage))
	if data == nil {
		data = []T{}
	}

	return PaginatedResponse[T]{
		Data:       data,
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func DefaultPagination() PaginationParams {
	return PaginationParams{
		Page:    1,
		PerPage: defaultPerPage,
	}
}

func (p *PaginationParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
}

func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Paginate returns the slice of items for the requested page. Pages past
// the end are empty.
func Paginate[T any](items []T, p PaginationParams) []T {
	p.Validate()
	pages := (len(items) + p.PerPage - 1) / p.PerPage
	if p.Page > pages {
		return []T{}
	}
	start := p.Offset()
	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
