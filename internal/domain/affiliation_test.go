package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAffiliationFromColumns(t *testing.T) {
	t.Parallel()

	org := "org-1"
	cb := "cb-1"
	empty := ""

	t.Run("both columns is ambiguous", func(t *testing.T) {
		_, err := AffiliationFromColumns(&org, &cb)
		require.ErrorIs(t, err, ErrAmbiguousAffiliation)
	})

	t.Run("organization only", func(t *testing.T) {
		aff, err := AffiliationFromColumns(&org, nil)
		require.NoError(t, err)
		id, ok := aff.OrganizationID()
		require.True(t, ok)
		require.Equal(t, org, id)
		_, ok = aff.CertificationBodyID()
		require.False(t, ok)
	})

	t.Run("certification body only", func(t *testing.T) {
		aff, err := AffiliationFromColumns(&empty, &cb)
		require.NoError(t, err)
		require.Equal(t, AffiliationCertificationBody, aff.Kind())
		require.Equal(t, cb, aff.ID())
	})

	t.Run("neither is unaffiliated", func(t *testing.T) {
		aff, err := AffiliationFromColumns(nil, nil)
		require.NoError(t, err)
		require.True(t, aff.IsUnaffiliated())
	})
}

func TestAffiliationColumnsRoundTrip(t *testing.T) {
	t.Parallel()

	for _, aff := range []Affiliation{Unaffiliated(), OfOrganization("o"), OfCertificationBody("c")} {
		orgID, cbID := aff.Columns()
		back, err := AffiliationFromColumns(orgID, cbID)
		require.NoError(t, err)
		require.True(t, aff.Equal(back), aff.String())
	}
}

func TestBlankIDIsUnaffiliated(t *testing.T) {
	t.Parallel()

	require.True(t, OfOrganization(" ").IsUnaffiliated())
	require.True(t, OfCertificationBody("").IsUnaffiliated())
}

func TestAuditStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to AuditStatus
		ok       bool
	}{
		{AuditScheduled, AuditInProgress, true},
		{AuditInProgress, AuditCompleted, true},
		{AuditScheduled, AuditCompleted, true},
		{AuditScheduled, AuditScheduled, true},
		{AuditCompleted, AuditInProgress, false},
		{AuditInProgress, AuditScheduled, false},
		{AuditScheduled, AuditStatus("archived"), false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	_, err := ParseAuditStatus("done")
	require.Error(t, err)
}

func TestRoles(t *testing.T) {
	t.Parallel()

	role, err := ParseRole(" Manager ")
	require.NoError(t, err)
	require.Equal(t, RoleManager, role)
	require.True(t, role.Invitable())
	require.False(t, RoleAdmin.Invitable())
	require.False(t, RoleGuest.Invitable())

	_, err = ParseRole("owner")
	require.Error(t, err)
}
