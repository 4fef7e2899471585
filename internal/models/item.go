package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"spinly/internal/types"
)

// Item is a prize-wheel entry. Quantity is the number of units awarded on
// redemption; it is not a selection weight.
type Item struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Name     string `json:"name" yaml:"name" validate:"required"`
	Quantity int    `json:"quantity" yaml:"quantity" validate:"gte=0"`
	Color    string `json:"color,omitempty" yaml:"color" validate:"omitempty,hexcolor"`
	Image    string `json:"image,omitempty" yaml:"image"`
	// IsWinner marks a genuine prize. false is a "try again" slot that still
	// occupies a wheel segment.
	IsWinner bool `json:"isWinner" yaml:"isWinner"`
}

// LogEntry records the outcome of one resolved spin. Entries are never
// mutated once appended.
type LogEntry struct {
	// ID is the storage key, filled in when entries are listed.
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	ItemID    string    `json:"itemId" validate:"required"`
	ItemName  string    `json:"itemName" validate:"required"`
	IsWinner  bool      `json:"isWinner"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}

// NewLogEntry builds the log record for a resolved item.
func NewLogEntry(item Item, at time.Time) LogEntry {
	return LogEntry{
		Timestamp: at.UTC(),
		ItemID:    item.ID,
		ItemName:  item.Name,
		IsWinner:  item.IsWinner,
		Quantity:  item.Quantity,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what clients sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a single item's fields.
func (i Item) Validate() error {
	return structError(validate.Struct(i))
}

// Validate checks a log entry's fields.
func (e LogEntry) Validate() error {
	return structError(validate.Struct(e))
}

// ValidateItems checks every item and rejects duplicate ids. The whole list
// is rejected on the first problem found.
func ValidateItems(items []Item) error {
	seen := make(map[string]int, len(items))
	for idx, item := range items {
		if err := item.Validate(); err != nil {
			return types.WrapError(types.ErrValidation, fmt.Sprintf("item %d is invalid", idx), err)
		}
		if first, dup := seen[item.ID]; dup {
			return types.Errorf(types.ErrValidation, "duplicate item id %q at positions %d and %d", item.ID, first, idx)
		}
		seen[item.ID] = idx
	}
	return nil
}

// Available returns the items that can appear on the wheel, preserving order.
func Available(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.WrapError(types.ErrValidation, "invalid record", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return types.NewError(types.ErrValidation, strings.Join(msgs, "; "))
}
