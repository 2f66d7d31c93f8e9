package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/catalog"
	"github.com/spec-kit/certification-service/internal/domain"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// StandardsService exposes the standards catalog.
type StandardsService struct {
	base
	catalog catalog.Catalog
}

func NewStandardsService(deps Dependencies, cat catalog.Catalog) *StandardsService {
	return &StandardsService{base: newBase(deps), catalog: cat}
}

// Search is public.
func (s *StandardsService) Search(ctx context.Context, filter catalog.Filter) (catalog.Page, error) {
	page, err := s.catalog.Search(ctx, filter)
	if err != nil {
		return catalog.Page{}, apperrors.NewInternalError(err)
	}
	return page, nil
}

func (s *StandardsService) Get(ctx context.Context, id string) (*domain.Standard, error) {
	st, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, catalogError(err)
	}
	return st, nil
}

// Insert adds a record. Admins and managers only.
func (s *StandardsService) Insert(ctx context.Context, userID string, standard domain.Standard) (*domain.Standard, error) {
	user, err := s.gate.Require(ctx, userID, domain.RoleAdmin, domain.RoleManager)
	if err != nil {
		return nil, err
	}
	standard.Iso = trimmed(standard.Iso)
	if standard.Iso == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"Iso": "required"})
	}
	standard.ID = ""
	standard.IsActive = true
	if err := s.catalog.Insert(ctx, &standard); err != nil {
		return nil, catalogError(err)
	}
	s.transition("standard", "inserted")
	s.logger.Info("standard added", zap.String("iso", standard.Iso), zap.String("user_id", user.ID))
	return &standard, nil
}

// Retire soft-deletes the record with the given Iso code. Admins and managers only.
func (s *StandardsService) Retire(ctx context.Context, userID, iso string) (*domain.Standard, error) {
	if _, err := s.gate.Require(ctx, userID, domain.RoleAdmin, domain.RoleManager); err != nil {
		return nil, err
	}
	st, err := s.catalog.Retire(ctx, trimmed(iso))
	if err != nil {
		return nil, catalogError(err)
	}
	s.transition("standard", "retired")
	return st, nil
}

func catalogError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return apperrors.NewNotFound("standard", nil)
	case errors.Is(err, catalog.ErrDuplicateIso):
		return apperrors.NewConflict("standard with this Iso already exists", nil)
	}
	return apperrors.NewInternalError(err)
}
