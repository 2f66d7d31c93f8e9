package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// CreationRequestService handles guests' requests to found an organization or
// certification body and the admin decisions on them.
type CreationRequestService struct {
	base
}

// CreationRequestInput carries the proposed entity details.
type CreationRequestInput struct {
	Name         string
	Address      string
	ContactEmail string
	ContactPhone string
	Description  string
}

func NewCreationRequestService(deps Dependencies) *CreationRequestService {
	return &CreationRequestService{base: newBase(deps)}
}

// Submit records a pending request. A guest may hold one pending request per kind.
func (s *CreationRequestService) Submit(ctx context.Context, guestID string, kind domain.EntityKind, input CreationRequestInput) (Result[*domain.CreationRequest], error) {
	guest, err := s.gate.Require(ctx, guestID, domain.RoleGuest)
	if err != nil {
		return Result[*domain.CreationRequest]{}, err
	}
	if !guest.Affiliation.IsUnaffiliated() {
		return Result[*domain.CreationRequest]{}, apperrors.NewBadRequest("user is already affiliated")
	}
	name := trimmed(input.Name)
	if name == "" {
		return Result[*domain.CreationRequest]{}, apperrors.NewBadRequest("name is required")
	}

	req := &domain.CreationRequest{
		ID:           uuid.NewString(),
		Kind:         kind,
		GuestID:      guest.ID,
		Name:         name,
		Address:      trimmed(input.Address),
		ContactEmail: domain.NormalizeEmail(input.ContactEmail),
		ContactPhone: trimmed(input.ContactPhone),
		Description:  trimmed(input.Description),
		Status:       domain.RequestPending,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		pending := domain.RequestPending
		open, err := tx.CreationRequests().List(ctx, repository.CreationRequestFilter{Kind: &kind, Status: &pending, GuestID: &guest.ID, Limit: 1})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return apperrors.NewConflict("a pending request already exists", map[string]any{"request_id": open[0].ID})
		}
		taken, err := nameTaken(ctx, tx, kind, name)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewConflict("name already in use", map[string]any{"name": name})
		}
		if err := tx.CreationRequests().Create(ctx, req); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewConflict("a pending request already exists", nil)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Result[*domain.CreationRequest]{}, storeError(err, "creation request")
	}
	s.transition(string(kind)+"_request", "submitted")

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventCreationRequestSubmitted,
		SubjectID: req.ID,
		ActorID:   guest.ID,
		Payload: events.CreationRequestSubmittedPayload{
			RequestID:  req.ID,
			Kind:       kind,
			Name:       req.Name,
			GuestEmail: guest.Email,
		},
	})
	return Result[*domain.CreationRequest]{Value: req, NotificationFailed: failed}, nil
}

// Approve creates the entity, makes the guest its manager and closes the request
// in one transaction.
func (s *CreationRequestService) Approve(ctx context.Context, adminID, requestID, comment string) (Result[*domain.CreationRequest], error) {
	admin, err := s.gate.Require(ctx, adminID, domain.RoleAdmin)
	if err != nil {
		return Result[*domain.CreationRequest]{}, err
	}

	var req *domain.CreationRequest
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		req, err = loadUndecidedRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		guest, err := tx.Users().GetByID(ctx, req.GuestID)
		if err != nil {
			return err
		}
		if !guest.Affiliation.IsUnaffiliated() {
			return apperrors.NewBadRequest("requesting user is already affiliated")
		}

		entityID := uuid.NewString()
		if err := createEntity(ctx, tx, req, entityID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewConflict("name already in use", map[string]any{"name": req.Name})
			}
			return err
		}

		guest.Role = domain.RoleManager
		guest.Affiliation = req.Kind.Affiliation(entityID)
		guest.IsConfirmed = true
		if err := tx.Users().Update(ctx, guest); err != nil {
			return err
		}

		req.Status = domain.RequestApproved
		req.AdminComment = trimmed(comment)
		req.EntityID = &entityID
		return tx.CreationRequests().Update(ctx, req)
	})
	if err != nil {
		return Result[*domain.CreationRequest]{}, storeError(err, "creation request")
	}
	s.transition(string(req.Kind)+"_request", "approved")
	s.logger.Info("creation request approved",
		zap.String("request_id", req.ID),
		zap.String("entity_id", *req.EntityID),
		zap.String("guest_id", req.GuestID))

	failed := s.publishDecision(ctx, admin.ID, req)
	return Result[*domain.CreationRequest]{Value: req, NotificationFailed: failed}, nil
}

// Reject closes the request with a comment and no other side effect.
func (s *CreationRequestService) Reject(ctx context.Context, adminID, requestID, comment string) (Result[*domain.CreationRequest], error) {
	admin, err := s.gate.Require(ctx, adminID, domain.RoleAdmin)
	if err != nil {
		return Result[*domain.CreationRequest]{}, err
	}
	var req *domain.CreationRequest
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		req, err = loadUndecidedRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		req.Status = domain.RequestRejected
		req.AdminComment = trimmed(comment)
		return tx.CreationRequests().Update(ctx, req)
	})
	if err != nil {
		return Result[*domain.CreationRequest]{}, storeError(err, "creation request")
	}
	s.transition(string(req.Kind)+"_request", "rejected")

	failed := s.publishDecision(ctx, admin.ID, req)
	return Result[*domain.CreationRequest]{Value: req, NotificationFailed: failed}, nil
}

// List returns requests for admin review.
func (s *CreationRequestService) List(ctx context.Context, adminID string, kind *domain.EntityKind, status *domain.RequestStatus, page Page) ([]domain.CreationRequest, error) {
	if _, err := s.gate.Require(ctx, adminID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.NewBadRequest("invalid request status")
	}
	items, err := s.store.CreationRequests().List(ctx, repository.CreationRequestFilter{
		Kind:   kind,
		Status: status,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// ListMine returns the caller's own requests of kind.
func (s *CreationRequestService) ListMine(ctx context.Context, userID string, kind domain.EntityKind, page Page) ([]domain.CreationRequest, error) {
	user, err := s.gate.Require(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.CreationRequests().List(ctx, repository.CreationRequestFilter{
		Kind:    &kind,
		GuestID: &user.ID,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

func (s *CreationRequestService) publishDecision(ctx context.Context, adminID string, req *domain.CreationRequest) bool {
	return s.publishEvent(ctx, events.Event{
		Type:      events.EventCreationRequestDecided,
		SubjectID: req.ID,
		ActorID:   adminID,
		Payload: events.CreationRequestDecidedPayload{
			RequestID: req.ID,
			Kind:      req.Kind,
			Name:      req.Name,
			GuestID:   req.GuestID,
			Status:    req.Status,
			Comment:   req.AdminComment,
		},
	})
}

func loadUndecidedRequest(ctx context.Context, tx repository.Store, id string) (*domain.CreationRequest, error) {
	req, err := tx.CreationRequests().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestPending {
		return nil, apperrors.NewBadRequest("request has already been processed")
	}
	return req, nil
}

func nameTaken(ctx context.Context, store repository.Store, kind domain.EntityKind, name string) (bool, error) {
	var err error
	if kind == domain.EntityCertificationBody {
		_, err = store.CertificationBodies().GetByName(ctx, name)
	} else {
		_, err = store.Organizations().GetByName(ctx, name)
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	}
	return false, err
}

func createEntity(ctx context.Context, tx repository.Store, req *domain.CreationRequest, id string) error {
	if req.Kind == domain.EntityCertificationBody {
		return tx.CertificationBodies().Create(ctx, &domain.CertificationBody{
			ID:           id,
			Name:         req.Name,
			Address:      req.Address,
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
		})
	}
	return tx.Organizations().Create(ctx, &domain.Organization{
		ID:           id,
		Name:         req.Name,
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
}
