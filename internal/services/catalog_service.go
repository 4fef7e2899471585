package services

import (
	"context"
	"sort"

	"spinly/internal/models"
	"spinly/internal/repositories/spinlog"
	"spinly/internal/repositories/stock"
)

// StockService is the operator-facing view of the stock list.
type StockService struct {
	repo stock.Repository
}

// NewStockService creates a StockService.
func NewStockService(repo stock.Repository) *StockService {
	return &StockService{repo: repo}
}

// Available returns the items shown on the wheel.
func (s *StockService) Available(ctx context.Context) ([]models.Item, error) {
	return s.repo.List(ctx)
}

// All returns every item, including exhausted ones, for editing.
func (s *StockService) All(ctx context.Context) ([]models.Item, error) {
	return s.repo.ListAll(ctx)
}

// Replace swaps the stock list. Quantities are stored as given; spins never
// decrement them.
func (s *StockService) Replace(ctx context.Context, items []models.Item) error {
	return s.repo.Replace(ctx, items)
}

// LogService reads and writes the spin log.
type LogService struct {
	sink spinlog.Sink
}

// NewLogService creates a LogService.
func NewLogService(sink spinlog.Sink) *LogService {
	return &LogService{sink: sink}
}

// Append records an entry submitted directly by a client.
func (s *LogService) Append(ctx context.Context, entry models.LogEntry) error {
	return s.sink.Append(ctx, entry)
}

// List returns all entries, newest first.
func (s *LogService) List(ctx context.Context) ([]models.LogEntry, error) {
	entries, err := s.sink.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
