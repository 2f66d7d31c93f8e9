package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/domain"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestCodecRoundTrip(t *testing.T) {
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := NewCodec("secret", clk.now)
	maxAge := 7 * 24 * time.Hour

	token, err := codec.Sign(domain.InvitationClaims{InvitationID: "inv-1", Role: domain.RoleEmployee}, SaltInvitation)
	require.NoError(t, err)

	t.Run("valid before max age", func(t *testing.T) {
		clk.t = clk.t.Add(maxAge - time.Nanosecond)
		defer func() { clk.t = clk.t.Add(-(maxAge - time.Nanosecond)) }()

		var got domain.InvitationClaims
		require.NoError(t, codec.Verify(token, SaltInvitation, maxAge, &got))
		require.Equal(t, "inv-1", got.InvitationID)
		require.Equal(t, domain.RoleEmployee, got.Role)
	})

	t.Run("expired at max age", func(t *testing.T) {
		clk.t = clk.t.Add(maxAge)
		defer func() { clk.t = clk.t.Add(-maxAge) }()

		require.ErrorIs(t, codec.Verify(token, SaltInvitation, maxAge, nil), ErrTokenExpired)
	})

	t.Run("wrong salt is invalid", func(t *testing.T) {
		require.ErrorIs(t, codec.Verify(token, SaltPasswordReset, maxAge, nil), ErrTokenInvalid)
	})

	t.Run("tampered token is invalid", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		first := byte('A')
		if parts[2][0] == 'A' {
			first = 'B'
		}
		parts[2] = string(first) + parts[2][1:]
		tampered := strings.Join(parts, ".")
		require.ErrorIs(t, codec.Verify(tampered, SaltInvitation, maxAge, nil), ErrTokenInvalid)
	})

	t.Run("other secret is invalid", func(t *testing.T) {
		other := NewCodec("another", clk.now)
		require.ErrorIs(t, other.Verify(token, SaltInvitation, maxAge, nil), ErrTokenInvalid)
	})

	t.Run("garbage is invalid", func(t *testing.T) {
		require.ErrorIs(t, codec.Verify("not-a-token", SaltInvitation, maxAge, nil), ErrTokenInvalid)
	})
}
