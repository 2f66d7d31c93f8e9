package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/domain"
)

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, 24*time.Hour)
	user := &domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleManager}

	access, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, access.JTI)

	claims, err := tm.ParseToken(access.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, access.JTI, claims.ID)
	require.Equal(t, domain.TokenKindAccess, claims.Kind)
	require.Equal(t, domain.RoleManager, claims.Role)

	refresh, err := tm.GenerateRefreshToken(user)
	require.NoError(t, err)
	require.NotEqual(t, access.JTI, refresh.JTI)
	claims, err = tm.ParseToken(refresh.Token)
	require.NoError(t, err)
	require.Equal(t, domain.TokenKindRefresh, claims.Kind)

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager("secret", time.Hour, 24*time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ParseToken(access.Token)
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", time.Hour, time.Hour).ParseToken(access.Token)
		require.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hashed, "s3cret!"))
	require.Error(t, ComparePassword(hashed, "wrong"))
}
