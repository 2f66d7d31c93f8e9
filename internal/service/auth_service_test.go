package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/domain"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

var linkToken = regexp.MustCompile(`token=([A-Za-z0-9._-]+)`)

// mailedToken extracts the token from the latest link mailed to email.
func (f *fixture) mailedToken(email string) string {
	f.t.Helper()
	msgs := f.sender.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if len(msgs[i].To) == 1 && msgs[i].To[0] == email {
			m := linkToken.FindStringSubmatch(msgs[i].HTMLBody)
			require.NotNil(f.t, m, "no token link in %q", msgs[i].Subject)
			return m[1]
		}
	}
	f.t.Fatalf("no message sent to %s", email)
	return ""
}

func TestRegisterConfirmLogin(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Register(f.ctx, RegisterInput{Email: " New.User@Example.com ", Password: "s3cret-pass", FullName: "New User"})
	require.NoError(t, err)
	user := res.Value
	require.Equal(t, "new.user@example.com", user.Email)
	require.Equal(t, domain.RoleGuest, user.Role)
	require.False(t, user.IsConfirmed)
	require.Equal(t, []string{"Confirm your email"}, f.sender.SentTo(user.Email))

	_, err = f.auth.Login(f.ctx, user.Email, "s3cret-pass")
	requireCode(t, err, apperrors.CodeForbidden)

	confirmed, err := f.auth.ConfirmEmail(f.ctx, f.mailedToken(user.Email))
	require.NoError(t, err)
	require.True(t, confirmed.IsConfirmed)

	session, err := f.auth.Login(f.ctx, "NEW.USER@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, session.User.ID)
	require.NotEmpty(t, session.Access.Token)
	require.NotEqual(t, session.Access.JTI, session.Refresh.JTI)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(f.ctx, user.Email, "nope")
		requireCode(t, err, apperrors.CodeUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.auth.Login(f.ctx, "ghost@example.com", "s3cret-pass")
		requireCode(t, err, apperrors.CodeUnauthorized)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.auth.Register(f.ctx, RegisterInput{Email: "new.user@example.com", Password: "another"})
		requireCode(t, err, apperrors.CodeConflict)
	})
}

func TestConfirmEmailTokenChecks(t *testing.T) {
	f := newFixture(t)
	res, err := f.auth.Register(f.ctx, RegisterInput{Email: "slow@example.com", Password: "pw"})
	require.NoError(t, err)
	token := f.mailedToken(res.Value.Email)

	t.Run("reset tokens do not confirm", func(t *testing.T) {
		reset, err := f.codec.Sign(emailClaims{Email: res.Value.Email}, auth.SaltPasswordReset)
		require.NoError(t, err)
		_, err = f.auth.ConfirmEmail(f.ctx, reset)
		requireCode(t, err, apperrors.CodeBadRequest)
	})

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		_, err := f.auth.ConfirmEmail(f.ctx, token)
		requireCode(t, err, apperrors.CodeBadRequest)
		require.False(t, f.reload(res.Value.ID).IsConfirmed)
	})
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	user := f.guest("forgetful@example.com")

	_, err := f.auth.RequestPasswordReset(f.ctx, "unknown@example.com")
	require.NoError(t, err)
	require.Empty(t, f.sender.Messages())

	_, err = f.auth.RequestPasswordReset(f.ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, []string{"Reset your password"}, f.sender.SentTo(user.Email))
	token := f.mailedToken(user.Email)

	require.NoError(t, f.auth.ResetPassword(f.ctx, token, "brand-new-pass"))

	_, err = f.auth.Login(f.ctx, user.Email, testPassword)
	requireCode(t, err, apperrors.CodeUnauthorized)
	_, err = f.auth.Login(f.ctx, user.Email, "brand-new-pass")
	require.NoError(t, err)

	t.Run("confirmation tokens cannot reset", func(t *testing.T) {
		other, err := f.codec.Sign(emailClaims{Email: user.Email}, auth.SaltEmailConfirmation)
		require.NoError(t, err)
		requireCode(t, f.auth.ResetPassword(f.ctx, other, "x"), apperrors.CodeBadRequest)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	user := f.guest("session@example.com")

	session, err := f.auth.Login(f.ctx, user.Email, testPassword)
	require.NoError(t, err)

	access, err := f.auth.Refresh(f.ctx, session.Refresh.Token)
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)

	_, err = f.auth.Refresh(f.ctx, session.Access.Token)
	requireCode(t, err, apperrors.CodeUnauthorized)

	claims, err := auth.NewTokenManager("jwt-secret", time.Hour, 24*time.Hour).ParseToken(session.Access.Token)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(f.ctx, claims, session.Refresh.Token))

	revoked, err := f.store.RevokedTokens().Exists(f.ctx, session.Access.JTI)
	require.NoError(t, err)
	require.True(t, revoked)

	_, err = f.auth.Refresh(f.ctx, session.Refresh.Token)
	requireCode(t, err, apperrors.CodeUnauthorized)

	requireCode(t, f.auth.Logout(f.ctx, nil, ""), apperrors.CodeUnauthorized)
}

func TestRegisterWithInvitation(t *testing.T) {
	f := newFixture(t)
	manager, orgID := f.orgManager("Acme")

	issued, err := f.invitations.Issue(f.ctx, manager.ID, domain.EntityOrganization, InviteInput{Email: "fresh@example.com", Role: "employee"})
	require.NoError(t, err)
	token := f.mailedToken("fresh@example.com")
	require.Equal(t, issued.Value.Token, token)

	res, err := f.auth.RegisterWithInvitation(f.ctx, InvitationRegisterInput{Token: token, Password: "pw-123456", FullName: "Fresh Hire"})
	require.NoError(t, err)
	user := res.Value.User
	require.Equal(t, "fresh@example.com", user.Email)
	require.Equal(t, domain.RoleEmployee, user.Role)
	require.True(t, user.IsConfirmed)
	id, ok := user.Affiliation.OrganizationID()
	require.True(t, ok)
	require.Equal(t, orgID, id)
	require.NotEmpty(t, res.Value.Access.Token)

	inv, err := f.store.Invitations().GetByID(f.ctx, issued.Value.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, inv.Status)

	profile, err := f.auth.Profile(f.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", profile.AffiliationName)

	t.Run("token is single use", func(t *testing.T) {
		_, err := f.auth.RegisterWithInvitation(f.ctx, InvitationRegisterInput{Token: token, Password: "pw"})
		requireCode(t, err, apperrors.CodeBadRequest)
	})

	t.Run("existing accounts must log in instead", func(t *testing.T) {
		existing := f.user("known@example.com", domain.RoleGuest, domain.Unaffiliated())
		_, err := f.invitations.Issue(f.ctx, manager.ID, domain.EntityOrganization, InviteInput{Email: existing.Email, Role: "employee"})
		require.NoError(t, err)
		_, err = f.auth.RegisterWithInvitation(f.ctx, InvitationRegisterInput{Token: f.mailedToken(existing.Email), Password: "pw"})
		requireCode(t, err, apperrors.CodeConflict)
	})
}

func TestSeedAdmin(t *testing.T) {
	f := newFixture(t)

	created, err := f.auth.SeedAdmin(f.ctx, "Root@Example.com", "Root", "admin-pass")
	require.NoError(t, err)
	require.True(t, created)

	created, err = f.auth.SeedAdmin(f.ctx, "root@example.com", "Root", "admin-pass")
	require.NoError(t, err)
	require.False(t, created)

	session, err := f.auth.Login(f.ctx, "root@example.com", "admin-pass")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, session.User.Role)

	created, err = f.auth.SeedAdmin(f.ctx, "", "", "")
	require.NoError(t, err)
	require.False(t, created)
}
