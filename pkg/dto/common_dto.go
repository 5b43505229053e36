package dto

// ListQuery is the common ?limit= query for bounded list endpoints.
type ListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// LimitOr returns the requested limit or fallback when none was given.
func (q ListQuery) LimitOr(fallback int) int {
	if q.Limit == 0 {
		return fallback
	}
	return q.Limit
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Data: items, Count: len(items)}
}
