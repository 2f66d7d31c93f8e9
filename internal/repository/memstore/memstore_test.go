package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository"
)

func fixedClock() func() time.Time {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestUserUniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())

	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u1", Email: "A@Example.com", Role: domain.RoleGuest}))
	err := store.Users().Create(ctx, &domain.User{ID: "u2", Email: "a@example.com", Role: domain.RoleGuest})
	require.ErrorIs(t, err, repository.ErrConflict)

	got, err := store.Users().GetByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	_, err = store.Users().GetByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Organizations().Create(ctx, &domain.Organization{ID: "o1", Name: "Acme"}))
		require.NoError(t, tx.Users().Create(ctx, &domain.User{ID: "u1", Email: "g@example.com"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Organizations().GetByID(ctx, "o1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Users().GetByID(ctx, "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())

	err := store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Organizations().Create(ctx, &domain.Organization{ID: "o1", Name: "Acme"}); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return tx.WithTx(ctx, func(inner repository.Store) error {
			_, err := inner.Organizations().GetByID(ctx, "o1")
			return err
		})
	})
	require.NoError(t, err)

	org, err := store.Organizations().GetByName(ctx, "ACME")
	require.NoError(t, err)
	require.Equal(t, "o1", org.ID)
}

func TestPendingInvitationPerEmailAndScope(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())
	scope := domain.OfOrganization("o1")

	first := &domain.Invitation{ID: "i1", Email: "e@example.com", Role: domain.RoleEmployee, Scope: scope, Token: "t1", Status: domain.InvitationPending}
	require.NoError(t, store.Invitations().Create(ctx, first))

	dup := &domain.Invitation{ID: "i2", Email: "e@example.com", Role: domain.RoleManager, Scope: scope, Token: "t2", Status: domain.InvitationPending}
	require.ErrorIs(t, store.Invitations().Create(ctx, dup), repository.ErrConflict)

	other := &domain.Invitation{ID: "i3", Email: "e@example.com", Role: domain.RoleEmployee, Scope: domain.OfCertificationBody("c1"), Token: "t3", Status: domain.InvitationPending}
	require.NoError(t, store.Invitations().Create(ctx, other))

	first.Status = domain.InvitationDeclined
	require.NoError(t, store.Invitations().Update(ctx, first))
	require.NoError(t, store.Invitations().Create(ctx, dup))

	pending, err := store.Invitations().GetPending(ctx, "i2", "t2")
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, pending.Role)

	_, err = store.Invitations().GetPending(ctx, "i1", "t1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCertificationOnePerAudit(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())

	require.NoError(t, store.Certifications().Create(ctx, &domain.Certification{ID: "c1", AuditID: "a1", CertificateNumber: "N1"}))
	err := store.Certifications().Create(ctx, &domain.Certification{ID: "c2", AuditID: "a1", CertificateNumber: "N2"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestReturnedAuditsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())

	audit := &domain.Audit{ID: "a1", Checklist: []domain.ChecklistItem{{StandardID: "s1"}}}
	require.NoError(t, store.Audits().Create(ctx, audit))

	got, err := store.Audits().GetByID(ctx, "a1")
	require.NoError(t, err)
	got.Checklist[0].ComplianceStatus = true

	again, err := store.Audits().GetByID(ctx, "a1")
	require.NoError(t, err)
	require.False(t, again.Checklist[0].ComplianceStatus)
}

func TestListPaginationAndOrder(t *testing.T) {
	ctx := context.Background()
	store := New(fixedClock())
	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.CreationRequests().Create(ctx, &domain.CreationRequest{
			ID: id, Kind: domain.EntityOrganization, GuestID: id, Status: domain.RequestPending,
		}))
	}

	page, err := store.CreationRequests().List(ctx, repository.CreationRequestFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "r3", page[0].ID)

	rest, err := store.CreationRequests().List(ctx, repository.CreationRequestFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "r1", rest[0].ID)
}

func TestRevokedTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := New(func() time.Time { return now })

	require.NoError(t, store.RevokedTokens().Create(ctx, &domain.RevokedToken{ID: "1", JTI: "j1", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.RevokedTokens().Create(ctx, &domain.RevokedToken{ID: "2", JTI: "j2", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.RevokedTokens().Create(ctx, &domain.RevokedToken{ID: "3", JTI: "j2", ExpiresAt: now.Add(time.Hour)}))

	ok, err := store.RevokedTokens().Exists(ctx, "j1")
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := store.RevokedTokens().DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	ok, err = store.RevokedTokens().Exists(ctx, "j1")
	require.NoError(t, err)
	require.False(t, ok)
}
