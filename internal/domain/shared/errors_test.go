package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError("NOT_FOUND", "Client not found")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("lookup: %w", err), ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapDomainError("INVALID_STATE", "Cannot cancel sale", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Cannot cancel sale: connection reset", err.Error())
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 1000, OrderDir: "sideways"}.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 200, f.PageSize)
	assert.Equal(t, "desc", f.OrderDir)
	assert.NotNil(t, f.Filters)
	assert.Equal(t, 0, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 3, 20)
	assert.Equal(t, 3, p.TotalPages)
}
