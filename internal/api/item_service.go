package api

import (
	"context"

	"mediaflow/internal/catalog"
)

// ItemReader abstracts catalog persistence interactions needed for API queries.
type ItemReader interface {
	List(ctx context.Context, filter catalog.ListFilter) ([]*catalog.Item, error)
	GetByID(ctx context.Context, id string) (*catalog.Item, error)
	Summarize(ctx context.Context) (catalog.Summary, error)
}

// ItemService exposes read-only catalog operations returning API DTOs.
type ItemService struct {
	store ItemReader
}

// NewItemService constructs an ItemService around the provided reader.
func NewItemService(store ItemReader) *ItemService {
	if store == nil {
		return nil
	}
	return &ItemService{store: store}
}

// List returns items matching filter.
func (s *ItemService) List(ctx context.Context, filter catalog.ListFilter) ([]Item, error) {
	if s == nil || s.store == nil {
		return []Item{}, nil
	}
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

// Counts returns item totals keyed by status string.
func (s *ItemService) Counts(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	summary, err := s.store.Summarize(ctx)
	if err != nil {
		return nil, err
	}
	return ItemCounts(summary), nil
}

// Describe fetches a single item. Missing ids surface the store's not-found
// error unchanged.
func (s *ItemService) Describe(ctx context.Context, id string) (*Item, error) {
	if s == nil || s.store == nil {
		return nil, catalog.ErrNotFound
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromItem(item)
	return &dto, nil
}
