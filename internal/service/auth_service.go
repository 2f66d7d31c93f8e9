package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/config"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and account token flows.
type AuthService struct {
	base
	tokens      *auth.TokenManager
	codec       *auth.Codec
	revocations *auth.RevocationList
	cfg         config.AuthConfig
}

// AuthDependencies encapsulates the requirements of the auth service.
type AuthDependencies struct {
	Dependencies
	Tokens      *auth.TokenManager
	Codec       *auth.Codec
	Revocations *auth.RevocationList
	Config      config.AuthConfig
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// InvitationRegisterInput creates an account straight from an invitation token.
type InvitationRegisterInput struct {
	Token    string
	Password string
	FullName string
}

// Session is an authenticated user with a fresh token pair.
type Session struct {
	User    *domain.User
	Access  auth.IssuedToken
	Refresh auth.IssuedToken
}

// Profile is a user together with the name of its organization or certification body.
type Profile struct {
	User            *domain.User
	AffiliationName string
}

type emailClaims struct {
	Email string `json:"email"`
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		base:        newBase(deps.Dependencies),
		tokens:      deps.Tokens,
		codec:       deps.Codec,
		revocations: deps.Revocations,
		cfg:         deps.Config,
	}
}

// Register creates an unconfirmed guest and mails a confirmation token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Result[*domain.User], error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return Result[*domain.User]{}, apperrors.NewBadRequest("email and password are required")
	}
	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return Result[*domain.User]{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     trimmed(input.FullName),
		Role:         domain.RoleGuest,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Result[*domain.User]{}, apperrors.NewConflict("email already registered", nil)
		}
		return Result[*domain.User]{}, apperrors.NewInternalError(err)
	}
	s.transition("user", "registered")

	failed := s.sendAccountToken(ctx, user, auth.SaltEmailConfirmation, events.EventEmailConfirmationRequested)
	return Result[*domain.User]{Value: user, NotificationFailed: failed}, nil
}

// RegisterWithInvitation creates a confirmed account for an invitee and
// accepts the invitation in the same transaction.
func (s *AuthService) RegisterWithInvitation(ctx context.Context, input InvitationRegisterInput) (Result[*Session], error) {
	var claims domain.InvitationClaims
	if err := verifyToken(s.codec, input.Token, auth.SaltInvitation, s.cfg.InvitationTTL, &claims); err != nil {
		return Result[*Session]{}, err
	}
	if input.Password == "" {
		return Result[*Session]{}, apperrors.NewBadRequest("password is required")
	}
	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return Result[*Session]{}, apperrors.NewInternalError(err)
	}

	now := s.clock()
	var (
		user      *domain.User
		inv       *domain.Invitation
		scopeName string
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		inv, err = loadPendingInvitation(ctx, tx, claims, input.Token, now)
		if err != nil {
			return err
		}
		if claims.Role != inv.Role {
			return apperrors.NewBadRequest("token role does not match the invitation")
		}
		if _, err := tx.Users().GetByEmail(ctx, inv.Email); err == nil {
			return apperrors.NewConflict("an account already exists for this email, log in to accept the invitation", nil)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		user = &domain.User{
			ID:           uuid.NewString(),
			Email:        inv.Email,
			PasswordHash: hash,
			FullName:     trimmed(input.FullName),
			Role:         inv.Role,
			Affiliation:  inv.Scope,
			IsConfirmed:  true,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		markAccepted(inv, now)
		if err := tx.Invitations().Update(ctx, inv); err != nil {
			return err
		}
		scopeName, err = s.scopeName(ctx, tx, inv.Scope)
		return err
	})
	if err != nil {
		return Result[*Session]{}, storeError(err, "invitation")
	}
	s.transition("invitation", "accepted")
	s.logger.Info("invitee registered", zap.String("user_id", user.ID), zap.String("invitation_id", inv.ID))

	session, err := s.issueSession(user)
	if err != nil {
		return Result[*Session]{}, err
	}
	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventInvitationAccepted,
		SubjectID: inv.ID,
		ActorID:   user.ID,
		Payload: events.InvitationAcceptedPayload{
			InvitationID: inv.ID,
			Email:        inv.Email,
			Role:         inv.Role,
			ScopeName:    scopeName,
		},
	})
	return Result[*Session]{Value: session, NotificationFailed: failed}, nil
}

// ConfirmEmail marks the account of the token's email as confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*domain.User, error) {
	var claims emailClaims
	if err := verifyToken(s.codec, token, auth.SaltEmailConfirmation, s.cfg.ConfirmationMaxAge, &claims); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByEmail(ctx, claims.Email)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if user.IsConfirmed {
		return user, nil
	}
	user.IsConfirmed = true
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}
	s.transition("user", "confirmed")
	return user, nil
}

// Login authenticates a confirmed user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users().GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsConfirmed {
		return nil, apperrors.NewForbidden("email address not confirmed")
	}
	return s.issueSession(user)
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.IssuedToken, error) {
	claims, err := s.tokens.ParseToken(refreshToken)
	if err != nil || claims.Kind != domain.TokenKindRefresh {
		return auth.IssuedToken{}, apperrors.NewUnauthorized("invalid refresh token")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return auth.IssuedToken{}, apperrors.NewInternalError(err)
	}
	if revoked {
		return auth.IssuedToken{}, apperrors.NewUnauthorized("token has been revoked")
	}
	user, err := s.store.Users().GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.IssuedToken{}, apperrors.NewUnauthorized("user not found")
		}
		return auth.IssuedToken{}, apperrors.NewInternalError(err)
	}
	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return auth.IssuedToken{}, apperrors.NewInternalError(err)
	}
	return access, nil
}

// Logout blacklists the access token jti. A refresh token, when given, is
// revoked along with it.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if claims == nil || claims.ExpiresAt == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(err)
	}
	if refreshToken != "" {
		refresh, err := s.tokens.ParseToken(refreshToken)
		if err == nil && refresh.Subject == claims.Subject && refresh.ExpiresAt != nil {
			if err := s.revocations.Revoke(ctx, refresh.ID, refresh.ExpiresAt.Time); err != nil {
				return apperrors.NewInternalError(err)
			}
		}
	}
	s.transition("token", "revoked")
	return nil
}

// RequestPasswordReset mails a reset token when the email belongs to a user.
// Unknown emails succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (Result[struct{}], error) {
	user, err := s.store.Users().GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result[struct{}]{}, nil
		}
		return Result[struct{}]{}, apperrors.NewInternalError(err)
	}
	failed := s.sendAccountToken(ctx, user, auth.SaltPasswordReset, events.EventPasswordResetRequested)
	return Result[struct{}]{NotificationFailed: failed}, nil
}

// ResetPassword sets a new password for the user named by a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	var claims emailClaims
	if err := verifyToken(s.codec, token, auth.SaltPasswordReset, s.cfg.PasswordResetMaxAge, &claims); err != nil {
		return err
	}
	if newPassword == "" {
		return apperrors.NewBadRequest("password is required")
	}
	user, err := s.store.Users().GetByEmail(ctx, claims.Email)
	if err != nil {
		return storeError(err, "user")
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.store.Users().Update(ctx, user); err != nil {
		return storeError(err, "user")
	}
	s.transition("user", "password_reset")
	return nil
}

// Profile returns the caller with the name of its affiliation.
func (s *AuthService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.gate.Require(ctx, userID)
	if err != nil {
		return nil, err
	}
	name, err := s.scopeName(ctx, s.store, user.Affiliation)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, AffiliationName: name}, nil
}

// SeedAdmin creates a confirmed administrator unless the email is taken.
// It reports whether a user was created.
func (s *AuthService) SeedAdmin(ctx context.Context, email, fullName, password string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}
	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return false, err
	}
	admin := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleAdmin,
		IsConfirmed:  true,
	}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("admin account seeded", zap.String("email", email))
	return true, nil
}

func (s *AuthService) issueSession(user *domain.User) (*Session, error) {
	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Access: access, Refresh: refresh}, nil
}

func (s *AuthService) sendAccountToken(ctx context.Context, user *domain.User, salt auth.Salt, eventType events.EventType) bool {
	token, err := s.codec.Sign(emailClaims{Email: user.Email}, salt)
	if err != nil {
		s.logger.Error("failed to sign account token", zap.String("user_id", user.ID), zap.Error(err))
		return true
	}
	return s.publishEvent(ctx, events.Event{
		Type:      eventType,
		SubjectID: user.ID,
		ActorID:   user.ID,
		Payload: events.AccountTokenPayload{
			UserID:   user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Token:    token,
		},
	})
}

// verifyToken checks a codec token and reports expiry and tampering as bad requests.
func verifyToken(codec *auth.Codec, token string, salt auth.Salt, maxAge time.Duration, out any) error {
	err := codec.Verify(token, salt, maxAge, out)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrTokenExpired):
		return apperrors.NewBadRequest("token expired")
	default:
		return apperrors.NewBadRequest("invalid token")
	}
}
