package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// InvitationService issues, accepts and revokes invitations into an
// organization or certification body.
type InvitationService struct {
	base
	codec *auth.Codec
	ttl   time.Duration
}

// InvitationDependencies bundles the requirements of the invitation service.
type InvitationDependencies struct {
	Dependencies
	Codec *auth.Codec
	// TTL defaults to domain.InvitationTTL.
	TTL time.Duration
}

// InviteInput describes who to invite and with which role.
type InviteInput struct {
	Email string
	Role  string
}

func NewInvitationService(deps InvitationDependencies) *InvitationService {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = domain.InvitationTTL
	}
	return &InvitationService{base: newBase(deps.Dependencies), codec: deps.Codec, ttl: ttl}
}

// Issue invites email into the caller's scope of kind. The caller must be a manager.
func (s *InvitationService) Issue(ctx context.Context, inviterID string, kind domain.EntityKind, input InviteInput) (Result[*domain.Invitation], error) {
	inviter, err := s.gate.Require(ctx, inviterID, domain.RoleManager)
	if err != nil {
		return Result[*domain.Invitation]{}, err
	}
	scope, err := scopeOf(inviter, kind)
	if err != nil {
		return Result[*domain.Invitation]{}, err
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil || !role.Invitable() {
		return Result[*domain.Invitation]{}, apperrors.NewBadRequest("invitation role must be employee or manager")
	}
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return Result[*domain.Invitation]{}, apperrors.NewBadRequest("email is required")
	}

	existing, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleGuest || !existing.Affiliation.IsUnaffiliated() {
			return Result[*domain.Invitation]{}, apperrors.NewBadRequest("user already holds a role or belongs to an organization or certification body")
		}
	case !errors.Is(err, repository.ErrNotFound):
		return Result[*domain.Invitation]{}, apperrors.NewInternalError(err)
	}

	now := s.clock()
	inv := &domain.Invitation{
		ID:          uuid.NewString(),
		Email:       email,
		Role:        role,
		Scope:       scope,
		InvitedByID: inviter.ID,
		ExpiresAt:   now.Add(s.ttl),
		Status:      domain.InvitationPending,
	}
	inv.Token, err = s.codec.Sign(domain.InvitationClaims{InvitationID: inv.ID, Role: role}, auth.SaltInvitation)
	if err != nil {
		return Result[*domain.Invitation]{}, apperrors.NewInternalError(err)
	}

	var scopeName string
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		pending := domain.InvitationPending
		current, err := tx.Invitations().List(ctx, repository.InvitationFilter{Scope: &scope, Email: &email, Status: &pending})
		if err != nil {
			return err
		}
		for i := range current {
			if current[i].Outstanding(now) {
				return apperrors.NewConflict("a pending invitation already exists for this email", nil)
			}
			// expired invitations stop blocking a new one
			current[i].Status = domain.InvitationDeclined
			current[i].RespondedAt = ptr(now)
			if err := tx.Invitations().Update(ctx, &current[i]); err != nil {
				return err
			}
		}
		if err := tx.Invitations().Create(ctx, inv); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewConflict("a pending invitation already exists for this email", nil)
			}
			return err
		}
		scopeName, err = s.scopeName(ctx, tx, scope)
		return err
	})
	if err != nil {
		return Result[*domain.Invitation]{}, storeError(err, "invitation")
	}
	s.transition("invitation", "issued")
	s.logger.Info("invitation issued",
		zap.String("invitation_id", inv.ID),
		zap.String("scope", scope.String()),
		zap.String("role", string(role)))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventInvitationIssued,
		SubjectID: inv.ID,
		ActorID:   inviter.ID,
		Payload: events.InvitationIssuedPayload{
			InvitationID: inv.ID,
			Email:        inv.Email,
			Role:         inv.Role,
			Scope:        scope,
			ScopeName:    scopeName,
			Token:        inv.Token,
			ExistingUser: existing != nil,
			ExpiresAt:    inv.ExpiresAt,
		},
	})
	return Result[*domain.Invitation]{Value: inv, NotificationFailed: failed}, nil
}

// Accept elevates the calling guest into the invitation's role and scope.
func (s *InvitationService) Accept(ctx context.Context, guestID string, kind domain.EntityKind, token string) (Result[*domain.User], error) {
	var claims domain.InvitationClaims
	if err := verifyToken(s.codec, token, auth.SaltInvitation, s.ttl, &claims); err != nil {
		return Result[*domain.User]{}, err
	}
	if _, err := s.gate.Require(ctx, guestID); err != nil {
		return Result[*domain.User]{}, err
	}

	now := s.clock()
	var (
		guest     *domain.User
		inv       *domain.Invitation
		scopeName string
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		inv, err = loadPendingInvitation(ctx, tx, claims, token, now)
		if err != nil {
			return err
		}
		if !scopeMatchesKind(inv.Scope, kind) {
			return apperrors.NewBadRequest("invitation not found or already processed")
		}
		guest, err = tx.Users().GetByID(ctx, guestID)
		if err != nil {
			return err
		}
		if guest.Email != inv.Email {
			return apperrors.NewForbidden("invitation was issued to another email address")
		}
		if guest.Role != domain.RoleGuest || !guest.Affiliation.IsUnaffiliated() {
			return apperrors.NewBadRequest("only unaffiliated guests can accept invitations")
		}
		if claims.Role != inv.Role {
			return apperrors.NewBadRequest("token role does not match the invitation")
		}

		guest.Role = inv.Role
		guest.Affiliation = inv.Scope
		if err := tx.Users().Update(ctx, guest); err != nil {
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
		return Result[*domain.User]{}, storeError(err, "user")
	}
	s.transition("invitation", "accepted")
	s.logger.Info("invitation accepted", zap.String("invitation_id", inv.ID), zap.String("user_id", guest.ID))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventInvitationAccepted,
		SubjectID: inv.ID,
		ActorID:   guest.ID,
		Payload: events.InvitationAcceptedPayload{
			InvitationID: inv.ID,
			Email:        inv.Email,
			Role:         inv.Role,
			ScopeName:    scopeName,
		},
	})
	return Result[*domain.User]{Value: guest, NotificationFailed: failed}, nil
}

// Revoke withdraws an unused invitation of the caller's scope. The invitee is
// told before the record is deleted.
func (s *InvitationService) Revoke(ctx context.Context, inviterID string, kind domain.EntityKind, invitationID string) (Result[*domain.Invitation], error) {
	inviter, err := s.gate.Require(ctx, inviterID, domain.RoleManager)
	if err != nil {
		return Result[*domain.Invitation]{}, err
	}
	scope, err := scopeOf(inviter, kind)
	if err != nil {
		return Result[*domain.Invitation]{}, err
	}
	inv, err := s.store.Invitations().GetByID(ctx, invitationID)
	if err != nil {
		return Result[*domain.Invitation]{}, storeError(err, "invitation")
	}
	if !inv.Scope.Equal(scope) {
		return Result[*domain.Invitation]{}, apperrors.NewForbidden("invitation belongs to another scope")
	}
	if inv.IsUsed {
		return Result[*domain.Invitation]{}, apperrors.NewBadRequest("invitation has already been used")
	}
	scopeName, err := s.scopeName(ctx, s.store, scope)
	if err != nil {
		return Result[*domain.Invitation]{}, err
	}

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventInvitationRevoked,
		SubjectID: inv.ID,
		ActorID:   inviter.ID,
		Payload: events.InvitationRevokedPayload{
			InvitationID: inv.ID,
			Email:        inv.Email,
			ScopeName:    scopeName,
		},
	})
	if err := s.store.Invitations().Delete(ctx, inv.ID); err != nil {
		return Result[*domain.Invitation]{}, storeError(err, "invitation")
	}
	s.transition("invitation", "revoked")
	return Result[*domain.Invitation]{Value: inv, NotificationFailed: failed}, nil
}

// List returns the invitations of the manager's scope, newest first.
func (s *InvitationService) List(ctx context.Context, managerID string, kind domain.EntityKind, status *domain.InvitationStatus, page Page) ([]domain.Invitation, error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return nil, err
	}
	scope, err := scopeOf(manager, kind)
	if err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.NewBadRequest("invalid invitation status")
	}
	items, err := s.store.Invitations().List(ctx, repository.InvitationFilter{
		Scope:  &scope,
		Status: status,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// loadPendingInvitation fetches the invitation a verified token refers to.
func loadPendingInvitation(ctx context.Context, store repository.Store, claims domain.InvitationClaims, token string, now time.Time) (*domain.Invitation, error) {
	inv, err := store.Invitations().GetPending(ctx, claims.InvitationID, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewBadRequest("invitation not found or already processed")
		}
		return nil, err
	}
	if inv.ExpiredAt(now) {
		return nil, apperrors.NewBadRequest("invitation expired")
	}
	return inv, nil
}

func markAccepted(inv *domain.Invitation, now time.Time) {
	inv.Status = domain.InvitationAccepted
	inv.IsUsed = true
	inv.RespondedAt = ptr(now)
}

func scopeMatchesKind(scope domain.Affiliation, kind domain.EntityKind) bool {
	switch kind {
	case domain.EntityOrganization:
		return scope.Kind() == domain.AffiliationOrganization
	case domain.EntityCertificationBody:
		return scope.Kind() == domain.AffiliationCertificationBody
	}
	return false
}
