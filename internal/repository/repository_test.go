package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	require.NoError(t, mapError(nil))
	require.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)

	conflict := mapError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	require.ErrorIs(t, conflict, ErrConflict)
	require.Contains(t, conflict.Error(), "users_email_key")

	malformed := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
	require.ErrorIs(t, mapError(malformed), ErrNotFound)

	other := errors.New("connection reset")
	require.Equal(t, other, mapError(other))
}
