package service

import (
	"context"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// DirectoryService serves read access to organizations, certification bodies
// and, for admins, users.
type DirectoryService struct {
	base
}

// UserEntry is a user listed with the name of its affiliation.
type UserEntry struct {
	User            domain.User
	AffiliationName string
}

func NewDirectoryService(deps Dependencies) *DirectoryService {
	return &DirectoryService{base: newBase(deps)}
}

func (s *DirectoryService) GetOrganization(ctx context.Context, userID, id string) (*domain.Organization, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	org, err := s.store.Organizations().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "organization")
	}
	return org, nil
}

func (s *DirectoryService) ListOrganizations(ctx context.Context, userID string, page Page) ([]domain.Organization, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.store.Organizations().List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

func (s *DirectoryService) GetCertificationBody(ctx context.Context, userID, id string) (*domain.CertificationBody, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	cb, err := s.store.CertificationBodies().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "certification body")
	}
	return cb, nil
}

func (s *DirectoryService) ListCertificationBodies(ctx context.Context, userID string, page Page) ([]domain.CertificationBody, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.store.CertificationBodies().List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// ListUsers returns users with their affiliation names. Admin only.
func (s *DirectoryService) ListUsers(ctx context.Context, adminID string, role *domain.Role, page Page) ([]UserEntry, error) {
	if _, err := s.gate.Require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	filter := repository.UserFilter{Limit: page.Limit, Offset: page.Offset}
	if role != nil {
		if !role.Valid() {
			return nil, apperrors.NewBadRequest("invalid role")
		}
		filter.Roles = []domain.Role{*role}
	}
	users, err := s.store.Users().List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	names := map[string]string{}
	out := make([]UserEntry, 0, len(users))
	for _, u := range users {
		entry := UserEntry{User: u}
		if !u.Affiliation.IsUnaffiliated() {
			key := u.Affiliation.String()
			name, ok := names[key]
			if !ok {
				if name, err = s.scopeName(ctx, s.store, u.Affiliation); err != nil {
					return nil, err
				}
				names[key] = name
			}
			entry.AffiliationName = name
		}
		out = append(out, entry)
	}
	return out, nil
}
