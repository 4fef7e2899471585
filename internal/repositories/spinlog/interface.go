package spinlog

import (
	"context"

	"spinly/internal/models"
)

// Sink is the append-only record of resolved spins.
type Sink interface {
	// Append stores one entry. Entries are never updated.
	Append(ctx context.Context, entry models.LogEntry) error

	// List returns every stored entry in no particular order; callers sort.
	List(ctx context.Context) ([]models.LogEntry, error)
}
