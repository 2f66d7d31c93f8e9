//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/persistence"
	"github.com/spec-kit/certification-service/internal/repository"
)

// setupPostgres starts a throwaway Postgres, applies the embedded migrations
// and returns a store bound to it.
func setupPostgres(t *testing.T) repository.Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "certs",
				"POSTGRES_PASSWORD": "certs",
				"POSTGRES_DB":       "certs",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://certs:certs@%s:%s/certs?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(pool, zap.NewNop()))
	return repository.NewPostgresStore(pool)
}

func TestPostgresStore(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	orgID := uuid.NewString()
	require.NoError(t, store.Organizations().Create(ctx, &domain.Organization{ID: orgID, Name: "Acme"}))

	manager := &domain.User{
		ID:           uuid.NewString(),
		Email:        "boss@acme.test",
		PasswordHash: "hash",
		Role:         domain.RoleManager,
		Affiliation:  domain.OfOrganization(orgID),
		IsConfirmed:  true,
	}
	require.NoError(t, store.Users().Create(ctx, manager))

	t.Run("user round trip keeps the affiliation", func(t *testing.T) {
		got, err := store.Users().GetByEmail(ctx, manager.Email)
		require.NoError(t, err)
		require.True(t, got.Affiliation.Equal(domain.OfOrganization(orgID)))
		require.Equal(t, domain.RoleManager, got.Role)
	})

	t.Run("duplicate email and name map to ErrConflict", func(t *testing.T) {
		dup := *manager
		dup.ID = uuid.NewString()
		require.ErrorIs(t, store.Users().Create(ctx, &dup), repository.ErrConflict)
		require.ErrorIs(t, store.Organizations().Create(ctx, &domain.Organization{ID: uuid.NewString(), Name: "ACME"}), repository.ErrConflict)
	})

	t.Run("missing rows map to ErrNotFound", func(t *testing.T) {
		_, err := store.Users().GetByID(ctx, uuid.NewString())
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("malformed ids map to ErrNotFound", func(t *testing.T) {
		_, err := store.Audits().GetByID(ctx, "abc")
		require.ErrorIs(t, err, repository.ErrNotFound)
		_, err = store.Invitations().GetByID(ctx, "abc")
		require.ErrorIs(t, err, repository.ErrNotFound)
		require.ErrorIs(t, store.Invitations().Delete(ctx, "abc"), repository.ErrNotFound)
		_, err = store.Organizations().GetByID(ctx, "abc")
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("one pending invitation per email and scope", func(t *testing.T) {
		invite := func() *domain.Invitation {
			return &domain.Invitation{
				ID:          uuid.NewString(),
				Email:       "dev@acme.test",
				Role:        domain.RoleEmployee,
				Scope:       domain.OfOrganization(orgID),
				InvitedByID: manager.ID,
				Token:       uuid.NewString(),
				ExpiresAt:   time.Now().Add(time.Hour),
				Status:      domain.InvitationPending,
			}
		}
		first := invite()
		require.NoError(t, store.Invitations().Create(ctx, first))
		require.ErrorIs(t, store.Invitations().Create(ctx, invite()), repository.ErrConflict)

		first.Status = domain.InvitationDeclined
		require.NoError(t, store.Invitations().Update(ctx, first))
		require.NoError(t, store.Invitations().Create(ctx, invite()))
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		cbID := uuid.NewString()
		err := store.WithTx(ctx, func(tx repository.Store) error {
			if err := tx.CertificationBodies().Create(ctx, &domain.CertificationBody{ID: cbID, Name: "Rolled Back"}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = store.CertificationBodies().GetByID(ctx, cbID)
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("expired revoked tokens are swept", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, store.RevokedTokens().Create(ctx, &domain.RevokedToken{ID: uuid.NewString(), JTI: "old", ExpiresAt: now.Add(-time.Minute)}))
		require.NoError(t, store.RevokedTokens().Create(ctx, &domain.RevokedToken{ID: uuid.NewString(), JTI: "live", ExpiresAt: now.Add(time.Hour)}))

		removed, err := store.RevokedTokens().DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, removed)

		live, err := store.RevokedTokens().Exists(ctx, "live")
		require.NoError(t, err)
		require.True(t, live)
	})
}
