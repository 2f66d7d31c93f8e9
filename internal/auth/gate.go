package auth

import (
	"context"
	"errors"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// Gate checks a caller's persisted role before a workflow operation runs.
// Roles are always read from the store so elevations after login apply at once.
type Gate struct {
	users repository.UserRepository
}

func NewGate(users repository.UserRepository) *Gate {
	return &Gate{users: users}
}

// Require loads userID and fails with Forbidden unless the user holds one of
// roles. An empty role list only requires the user to exist.
func (g *Gate) Require(ctx context.Context, userID string, roles ...domain.Role) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if len(roles) > 0 && !user.HasRole(roles...) {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	return user, nil
}
