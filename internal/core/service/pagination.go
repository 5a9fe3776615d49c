package service

import (
	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
)

// DefaultPageSize is the number of items per listing page.
const DefaultPageSize = 20

func pageOffset(page, size int) (int, error) {
	if page < 1 {
		return 0, domain.ErrInvalidPage
	}
	return (page - 1) * size, nil
}

// newPage wraps one fetched slice. Page 1 is always valid, even when empty.
func newPage[T any](items []T, total int64, page, size int) (*ports.Page[T], error) {
	if page > 1 && len(items) == 0 {
		return nil, domain.ErrInvalidPage
	}
	return &ports.Page[T]{
		Items:    items,
		Count:    total,
		Number:   page,
		Size:     size,
		HasNext:  int64(page*size) < total,
		HasPrior: page > 1,
	}, nil
}
