package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/domain"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

func orgRequest(name string) CreationRequestInput {
	return CreationRequestInput{
		Name:         name,
		Address:      "1 Main St",
		ContactEmail: "Contact@" + slug(name) + ".test",
		Description:  "A " + name + " request",
	}
}

func TestCreationRequestApproval(t *testing.T) {
	f := newFixture(t)
	admin := f.user("admin@platform.test", domain.RoleAdmin, domain.Unaffiliated())
	guest := f.guest("founder@example.com")

	submitted, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityOrganization, orgRequest("Acme Widgets"))
	require.NoError(t, err)
	req := submitted.Value
	require.Equal(t, domain.RequestPending, req.Status)
	require.Equal(t, "contact@acme-widgets.test", req.ContactEmail)
	require.Equal(t, []string{"New organization creation request"}, f.sender.SentTo(admin.Email))

	approved, err := f.requests.Approve(f.ctx, admin.ID, req.ID, " welcome ")
	require.NoError(t, err)
	require.Equal(t, domain.RequestApproved, approved.Value.Status)
	require.Equal(t, "welcome", approved.Value.AdminComment)
	require.NotNil(t, approved.Value.EntityID)

	org, err := f.store.Organizations().GetByID(f.ctx, *approved.Value.EntityID)
	require.NoError(t, err)
	require.Equal(t, "Acme Widgets", org.Name)

	manager := f.reload(guest.ID)
	require.Equal(t, domain.RoleManager, manager.Role)
	orgID, ok := manager.Affiliation.OrganizationID()
	require.True(t, ok)
	require.Equal(t, org.ID, orgID)
	require.Contains(t, f.sender.SentTo(guest.Email), "Your organization request was approved")

	t.Run("second decision is rejected", func(t *testing.T) {
		_, err := f.requests.Approve(f.ctx, admin.ID, req.ID, "")
		requireCode(t, err, apperrors.CodeBadRequest)
		_, err = f.requests.Reject(f.ctx, admin.ID, req.ID, "")
		requireCode(t, err, apperrors.CodeBadRequest)
	})

	t.Run("the new manager can no longer submit", func(t *testing.T) {
		_, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityCertificationBody, orgRequest("Other"))
		requireCode(t, err, apperrors.CodeForbidden)
	})
}

func TestCreationRequestCertificationBody(t *testing.T) {
	f := newFixture(t)
	admin := f.user("admin@platform.test", domain.RoleAdmin, domain.Unaffiliated())
	guest := f.guest("auditor@example.com")

	submitted, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityCertificationBody, orgRequest("Bureau Cert"))
	require.NoError(t, err)
	approved, err := f.requests.Approve(f.ctx, admin.ID, submitted.Value.ID, "")
	require.NoError(t, err)

	cb, err := f.store.CertificationBodies().GetByID(f.ctx, *approved.Value.EntityID)
	require.NoError(t, err)
	require.Equal(t, "Bureau Cert", cb.Name)
	cbID, ok := f.reload(guest.ID).Affiliation.CertificationBodyID()
	require.True(t, ok)
	require.Equal(t, cb.ID, cbID)
}

func TestCreationRequestSubmitChecks(t *testing.T) {
	f := newFixture(t)
	guest := f.guest("founder@example.com")
	existing, _ := f.orgManager("Taken Name")

	_, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityOrganization, orgRequest("First"))
	require.NoError(t, err)

	t.Run("one pending request per kind", func(t *testing.T) {
		_, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityOrganization, orgRequest("Second"))
		requireCode(t, err, apperrors.CodeConflict)
	})

	t.Run("other kind is independent", func(t *testing.T) {
		_, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityCertificationBody, orgRequest("Second"))
		require.NoError(t, err)
	})

	t.Run("existing names are refused", func(t *testing.T) {
		other := f.guest("other@example.com")
		_, err := f.requests.Submit(f.ctx, other.ID, domain.EntityOrganization, orgRequest("taken name"))
		requireCode(t, err, apperrors.CodeConflict)
	})

	t.Run("affiliated users cannot submit", func(t *testing.T) {
		_, err := f.requests.Submit(f.ctx, existing.ID, domain.EntityOrganization, orgRequest("Third"))
		requireCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("blank name", func(t *testing.T) {
		other := f.guest("blank@example.com")
		_, err := f.requests.Submit(f.ctx, other.ID, domain.EntityOrganization, orgRequest("   "))
		requireCode(t, err, apperrors.CodeBadRequest)
	})
}

func TestCreationRequestApprovalIsAtomic(t *testing.T) {
	f := newFixture(t)
	admin := f.user("admin@platform.test", domain.RoleAdmin, domain.Unaffiliated())
	guest := f.guest("late@example.com")

	submitted, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityOrganization, orgRequest("Contested"))
	require.NoError(t, err)
	// Someone else founds an organization with the same name in the meantime.
	f.orgManager("Contested")

	_, err = f.requests.Approve(f.ctx, admin.ID, submitted.Value.ID, "")
	requireCode(t, err, apperrors.CodeConflict)

	require.Equal(t, domain.RoleGuest, f.reload(guest.ID).Role)
	req, err := f.store.CreationRequests().GetByID(f.ctx, submitted.Value.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RequestPending, req.Status)
	require.Nil(t, req.EntityID)
	orgs, err := f.store.Organizations().List(f.ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
}

func TestCreationRequestRejectAndListing(t *testing.T) {
	f := newFixture(t)
	admin := f.user("admin@platform.test", domain.RoleAdmin, domain.Unaffiliated())
	guest := f.guest("founder@example.com")

	submitted, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityOrganization, orgRequest("Nope Inc"))
	require.NoError(t, err)

	t.Run("guests cannot decide", func(t *testing.T) {
		_, err := f.requests.Reject(f.ctx, guest.ID, submitted.Value.ID, "")
		requireCode(t, err, apperrors.CodeForbidden)
	})

	rejected, err := f.requests.Reject(f.ctx, admin.ID, submitted.Value.ID, "incomplete details")
	require.NoError(t, err)
	require.Equal(t, domain.RequestRejected, rejected.Value.Status)
	require.Equal(t, domain.RoleGuest, f.reload(guest.ID).Role)
	require.Contains(t, f.sender.SentTo(guest.Email), "Your organization request was rejected")

	mine, err := f.requests.ListMine(f.ctx, guest.ID, domain.EntityOrganization, Page{})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	pending := domain.RequestPending
	open, err := f.requests.List(f.ctx, admin.ID, nil, &pending, Page{})
	require.NoError(t, err)
	require.Empty(t, open)

	t.Run("a rejected guest may ask again", func(t *testing.T) {
		_, err := f.requests.Submit(f.ctx, guest.ID, domain.EntityOrganization, orgRequest("Nope Inc"))
		require.NoError(t, err)
	})

	t.Run("listing is admin only", func(t *testing.T) {
		_, err := f.requests.List(f.ctx, guest.ID, nil, nil, Page{})
		requireCode(t, err, apperrors.CodeForbidden)
	})
}
