package stock

import (
	"context"

	"spinly/internal/models"
)

// Repository holds the current prize list.
type Repository interface {
	// List returns the items the wheel may show (quantity > 0), in stored order.
	List(ctx context.Context) ([]models.Item, error)

	// ListAll returns every stored item, including those with no quantity left.
	ListAll(ctx context.Context) ([]models.Item, error)

	// Replace swaps the whole list. Items must be valid with unique ids;
	// otherwise nothing is written. Concurrent replaces are last-writer-wins.
	Replace(ctx context.Context, items []models.Item) error
}
