package errorutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, ToDomainError(nil))
	})

	t.Run("domain errors pass through wrapping", func(t *testing.T) {
		wrapped := errors.Join(errors.New("context"), NewConflict("duplicate", nil))
		de := ToDomainError(wrapped)
		require.Equal(t, CodeConflict, de.Code)
		require.Equal(t, http.StatusConflict, de.HTTPStatus)
	})

	t.Run("unknown errors become internal without leaking", func(t *testing.T) {
		de := ToDomainError(errors.New("pq: relation users does not exist"))
		require.Equal(t, CodeInternal, de.Code)
		require.Equal(t, "internal server error", de.Message)
		require.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	})

	t.Run("fiber errors keep their status", func(t *testing.T) {
		de := ToDomainError(fiber.NewError(http.StatusNotFound, "Cannot GET /nope"))
		require.Equal(t, CodeNotFound, de.Code)
		require.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})
}

func TestIsMatchesCode(t *testing.T) {
	t.Parallel()

	err := NewForbidden("scope mismatch")
	require.ErrorIs(t, err, NewForbidden(""))
	require.NotErrorIs(t, err, NewBadRequest(""))
	require.True(t, HasCode(err, CodeForbidden))
	require.False(t, HasCode(errors.New("plain"), CodeForbidden))
}
