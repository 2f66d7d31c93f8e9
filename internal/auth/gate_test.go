package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

func TestGateRequire(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "g1", Email: "g@example.com", Role: domain.RoleGuest}))

	gate := NewGate(store.Users())

	_, err := gate.Require(ctx, "g1", domain.RoleManager)
	require.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = gate.Require(ctx, "ghost")
	require.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	// a role change after login is visible immediately
	user, err := store.Users().GetByID(ctx, "g1")
	require.NoError(t, err)
	user.Role = domain.RoleManager
	require.NoError(t, store.Users().Update(ctx, user))

	got, err := gate.Require(ctx, "g1", domain.RoleManager, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, got.Role)
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	user := &domain.User{ID: "u1", Email: "u@example.com", Role: domain.RoleEmployee}
	require.NoError(t, store.Users().Create(ctx, user))

	tokens := NewTokenManager("secret", time.Hour, time.Hour)
	revocations := NewRevocationList(store.RevokedTokens(), nil, zap.NewNop())
	mw := NewAuthMiddleware(tokens, revocations, store.Users())

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	app.Get("/me", mw.Handle, RequireRole(domain.RoleEmployee), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.ID)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/any", mw.Handle, RequireAuthenticated(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/unguarded", RequireAuthenticated(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	call := func(path, token string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	access, err := tokens.GenerateAccessToken(user)
	require.NoError(t, err)
	refresh, err := tokens.GenerateRefreshToken(user)
	require.NoError(t, err)

	status, body := call("/me", access.Token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "u1", body)

	status, _ = call("/me", "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = call("/me", refresh.Token)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = call("/admin", access.Token)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = call("/any", access.Token)
	require.Equal(t, http.StatusOK, status)

	// without the middleware no principal is ever loaded
	status, _ = call("/unguarded", access.Token)
	require.Equal(t, http.StatusUnauthorized, status)

	require.NoError(t, revocations.Revoke(ctx, access.JTI, access.ExpiresAt))
	status, _ = call("/me", access.Token)
	require.Equal(t, http.StatusUnauthorized, status)
}
