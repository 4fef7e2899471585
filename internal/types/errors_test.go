package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without cause",
			err:      NewError(ErrInvalidInput, "no items to spin"),
			expected: "INVALID_INPUT: no items to spin",
		},
		{
			name:     "with cause",
			err:      WrapError(ErrIO, "failed to read stock", errors.New("disk gone")),
			expected: "IO: failed to read stock (disk gone)",
		},
		{
			name:     "formatted",
			err:      Errorf(ErrValidation, "duplicate item id %q", "a"),
			expected: `VALIDATION: duplicate item id "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", WrapError(ErrIO, "append failed", cause))

	assert.True(t, IsCode(err, ErrIO))
	assert.False(t, IsCode(err, ErrValidation))
	assert.False(t, IsCode(nil, ErrIO))
	assert.False(t, IsCode(cause, ErrIO))
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(NewError(ErrNotFound, "missing")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
