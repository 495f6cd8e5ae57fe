package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/library-lifecycle/internal/apperr"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not_found", apperr.NotFound("book not found"), http.StatusNotFound},
		{"conflict", apperr.Conflict("book not available"), http.StatusBadRequest},
		{"validation", apperr.Validation("bad dates"), http.StatusUnprocessableEntity},
		{"forbidden", apperr.Forbidden("forbidden"), http.StatusForbidden},
		{"wrapped_conflict", fmt.Errorf("borrow: %w", apperr.Conflict("book not available")), http.StatusBadRequest},
		{"untyped", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.HTTPStatus(tt.err))
		})
	}
}

func TestMessage_HidesUntypedErrors(t *testing.T) {
	assert.Equal(t, "book not available", apperr.Message(apperr.Conflict("book not available")))
	assert.Equal(t, "internal error", apperr.Message(errors.New("dial tcp 10.0.0.1:3306: refused")))
}

func TestKinds(t *testing.T) {
	err := apperr.Validation("rating must be between 1 and 5")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, apperr.IsTyped(err))
	assert.False(t, apperr.IsTyped(errors.New("boom")))
}
