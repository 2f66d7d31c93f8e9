package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/catalog"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// Decision is a certification body's answer to an audit request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	switch d := Decision(raw); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	}
	return "", apperrors.NewBadRequest("decision must be approve or reject")
}

// AuditService runs audit requests, audits and their status changes.
type AuditService struct {
	base
	catalog catalog.Catalog
}

// AuditDependencies bundles the requirements of the audit service.
type AuditDependencies struct {
	Dependencies
	Catalog catalog.Catalog
}

// AuditRequestInput is an organization's proposal for an audit.
type AuditRequestInput struct {
	CertificationBodyID string
	Name                string
	StandardIDs         []string
	ScheduledDate       time.Time
}

// DirectAuditInput schedules an audit without a prior request.
type DirectAuditInput struct {
	OrganizationID string
	Name           string
	StandardIDs    []string
	ScheduledDate  time.Time
}

// ChecklistUpdate sets the compliance flag of one checklist item.
type ChecklistUpdate struct {
	StandardID       string
	ComplianceStatus bool
}

// AuditUpdateInput lists the fields to change. Nil fields are left alone.
type AuditUpdateInput struct {
	Name          *string
	ScheduledDate *time.Time
	Status        *string
	Checklist     []ChecklistUpdate
}

// AuditListFilter narrows audit listings.
type AuditListFilter struct {
	Status              *string
	OrganizationID      *string
	CertificationBodyID *string
	From                *time.Time
	To                  *time.Time
	Page
}

func NewAuditService(deps AuditDependencies) *AuditService {
	return &AuditService{base: newBase(deps.Dependencies), catalog: deps.Catalog}
}

// RequestAudit files a pending audit request on behalf of the caller's organization.
func (s *AuditService) RequestAudit(ctx context.Context, managerID string, input AuditRequestInput) (Result[*domain.AuditRequest], error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return Result[*domain.AuditRequest]{}, err
	}
	orgID, ok := manager.Affiliation.OrganizationID()
	if !ok {
		return Result[*domain.AuditRequest]{}, apperrors.NewBadRequest("caller has no organization affiliation")
	}
	name := trimmed(input.Name)
	if name == "" || input.ScheduledDate.IsZero() {
		return Result[*domain.AuditRequest]{}, apperrors.NewBadRequest("name and scheduled date are required")
	}
	if _, err := s.store.CertificationBodies().GetByID(ctx, input.CertificationBodyID); err != nil {
		return Result[*domain.AuditRequest]{}, storeError(err, "certification body")
	}
	checklist, err := s.resolveChecklist(ctx, input.StandardIDs)
	if err != nil {
		return Result[*domain.AuditRequest]{}, err
	}
	standardIDs := make([]string, len(checklist))
	for i, item := range checklist {
		standardIDs[i] = item.StandardID
	}

	req := &domain.AuditRequest{
		ID:                  uuid.NewString(),
		Name:                name,
		OrganizationID:      orgID,
		CertificationBodyID: input.CertificationBodyID,
		RequestedByID:       manager.ID,
		StandardIDs:         standardIDs,
		ScheduledDate:       input.ScheduledDate.UTC(),
		Status:              domain.RequestPending,
	}
	if err := s.store.AuditRequests().Create(ctx, req); err != nil {
		return Result[*domain.AuditRequest]{}, storeError(err, "audit request")
	}
	s.transition("audit_request", "submitted")

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventAuditRequested,
		SubjectID: req.ID,
		ActorID:   manager.ID,
		Payload: events.AuditRequestedPayload{
			AuditRequestID:      req.ID,
			Name:                req.Name,
			OrganizationID:      req.OrganizationID,
			CertificationBodyID: req.CertificationBodyID,
			ScheduledDate:       req.ScheduledDate,
		},
	})
	return Result[*domain.AuditRequest]{Value: req, NotificationFailed: failed}, nil
}

// DecideAuditRequest approves or rejects a pending request addressed to the
// caller's certification body. Approval creates the scheduled audit.
func (s *AuditService) DecideAuditRequest(ctx context.Context, managerID, requestID string, decision Decision, comment string) (Result[*domain.AuditRequest], error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return Result[*domain.AuditRequest]{}, err
	}
	scope, err := scopeOf(manager, domain.EntityCertificationBody)
	if err != nil {
		return Result[*domain.AuditRequest]{}, err
	}
	req, err := s.store.AuditRequests().GetByID(ctx, requestID)
	if err != nil {
		return Result[*domain.AuditRequest]{}, storeError(err, "audit request")
	}
	if req.CertificationBodyID != scope.ID() {
		return Result[*domain.AuditRequest]{}, apperrors.NewForbidden("audit request is addressed to another certification body")
	}
	if req.Status != domain.RequestPending {
		return Result[*domain.AuditRequest]{}, apperrors.NewBadRequest("audit request has already been processed")
	}

	var checklist []domain.ChecklistItem
	if decision == DecisionApprove {
		if checklist, err = s.resolveChecklist(ctx, req.StandardIDs); err != nil {
			return Result[*domain.AuditRequest]{}, err
		}
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.AuditRequests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status != domain.RequestPending {
			return apperrors.NewBadRequest("audit request has already been processed")
		}
		req = current
		req.DecidedByID = &manager.ID
		req.Comment = trimmed(comment)

		if decision == DecisionReject {
			req.Status = domain.RequestRejected
			return tx.AuditRequests().Update(ctx, req)
		}

		audit := &domain.Audit{
			ID:                  uuid.NewString(),
			Name:                req.Name,
			OrganizationID:      req.OrganizationID,
			CertificationBodyID: req.CertificationBodyID,
			ManagerID:           manager.ID,
			AuditRequestID:      &req.ID,
			ScheduledDate:       req.ScheduledDate,
			Status:              domain.AuditScheduled,
			Checklist:           checklist,
		}
		if err := tx.Audits().Create(ctx, audit); err != nil {
			return err
		}
		req.Status = domain.RequestApproved
		req.AuditID = &audit.ID
		return tx.AuditRequests().Update(ctx, req)
	})
	if err != nil {
		return Result[*domain.AuditRequest]{}, storeError(err, "audit request")
	}
	s.transition("audit_request", string(req.Status))
	if req.AuditID != nil {
		s.transition("audit", string(domain.AuditScheduled))
	}
	s.logger.Info("audit request decided",
		zap.String("audit_request_id", req.ID),
		zap.String("status", string(req.Status)))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventAuditRequestDecided,
		SubjectID: req.ID,
		ActorID:   manager.ID,
		Payload: events.AuditRequestDecidedPayload{
			AuditRequestID: req.ID,
			Name:           req.Name,
			OrganizationID: req.OrganizationID,
			Status:         req.Status,
			Comment:        req.Comment,
			AuditID:        req.AuditID,
		},
	})
	return Result[*domain.AuditRequest]{Value: req, NotificationFailed: failed}, nil
}

// CreateAuditDirect schedules an audit of an organization by the caller's
// certification body without a request.
func (s *AuditService) CreateAuditDirect(ctx context.Context, managerID string, input DirectAuditInput) (Result[*domain.Audit], error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return Result[*domain.Audit]{}, err
	}
	scope, err := scopeOf(manager, domain.EntityCertificationBody)
	if err != nil {
		return Result[*domain.Audit]{}, err
	}
	name := trimmed(input.Name)
	if name == "" || input.ScheduledDate.IsZero() {
		return Result[*domain.Audit]{}, apperrors.NewBadRequest("name and scheduled date are required")
	}
	if _, err := s.store.Organizations().GetByID(ctx, input.OrganizationID); err != nil {
		return Result[*domain.Audit]{}, storeError(err, "organization")
	}
	checklist, err := s.resolveChecklist(ctx, input.StandardIDs)
	if err != nil {
		return Result[*domain.Audit]{}, err
	}

	audit := &domain.Audit{
		ID:                  uuid.NewString(),
		Name:                name,
		OrganizationID:      input.OrganizationID,
		CertificationBodyID: scope.ID(),
		ManagerID:           manager.ID,
		ScheduledDate:       input.ScheduledDate.UTC(),
		Status:              domain.AuditScheduled,
		Checklist:           checklist,
	}
	if err := s.store.Audits().Create(ctx, audit); err != nil {
		return Result[*domain.Audit]{}, storeError(err, "audit")
	}
	s.transition("audit", string(domain.AuditScheduled))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventAuditCreated,
		SubjectID: audit.ID,
		ActorID:   manager.ID,
		Payload: events.AuditCreatedPayload{
			AuditID:             audit.ID,
			Name:                audit.Name,
			OrganizationID:      audit.OrganizationID,
			CertificationBodyID: audit.CertificationBodyID,
			ScheduledDate:       audit.ScheduledDate,
		},
	})
	return Result[*domain.Audit]{Value: audit, NotificationFailed: failed}, nil
}

// UpdateAudit edits an audit. Managers of either party may rename or
// reschedule it; only the certification body may move its status or mark
// checklist compliance.
func (s *AuditService) UpdateAudit(ctx context.Context, managerID, auditID string, input AuditUpdateInput) (Result[*domain.Audit], error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return Result[*domain.Audit]{}, err
	}

	var newStatus *domain.AuditStatus
	if input.Status != nil {
		st, err := domain.ParseAuditStatus(*input.Status)
		if err != nil {
			return Result[*domain.Audit]{}, apperrors.NewBadRequest("invalid audit status")
		}
		newStatus = &st
	}

	var (
		audit     *domain.Audit
		oldStatus domain.AuditStatus
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		audit, err = tx.Audits().GetByID(ctx, auditID)
		if err != nil {
			return err
		}
		if !canSee(manager, audit.OrganizationID, audit.CertificationBodyID) {
			return apperrors.NewForbidden("audit belongs to another organization or certification body")
		}
		cbID, isCB := manager.Affiliation.CertificationBodyID()
		isAuditor := isCB && cbID == audit.CertificationBodyID
		if (newStatus != nil || len(input.Checklist) > 0) && !isAuditor {
			return apperrors.NewForbidden("only the certification body can change status or compliance")
		}

		oldStatus = audit.Status
		if input.Name != nil {
			name := trimmed(*input.Name)
			if name == "" {
				return apperrors.NewBadRequest("name cannot be empty")
			}
			audit.Name = name
		}
		if input.ScheduledDate != nil {
			audit.ScheduledDate = input.ScheduledDate.UTC()
		}
		if newStatus != nil {
			if !audit.Status.CanTransitionTo(*newStatus) {
				return apperrors.NewBadRequest("audit status cannot move from " + string(audit.Status) + " to " + string(*newStatus))
			}
			audit.Status = *newStatus
		}
		for _, change := range input.Checklist {
			idx := slices.IndexFunc(audit.Checklist, func(item domain.ChecklistItem) bool {
				return item.StandardID == change.StandardID
			})
			if idx < 0 {
				return apperrors.NewBadRequest("standard " + change.StandardID + " is not part of the checklist")
			}
			audit.Checklist[idx].ComplianceStatus = change.ComplianceStatus
		}
		return tx.Audits().Update(ctx, audit)
	})
	if err != nil {
		return Result[*domain.Audit]{}, storeError(err, "audit")
	}

	if audit.Status == oldStatus {
		return Result[*domain.Audit]{Value: audit}, nil
	}
	s.transition("audit", string(audit.Status))
	s.logger.Info("audit status changed",
		zap.String("audit_id", audit.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(audit.Status)))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventAuditStatusChanged,
		SubjectID: audit.ID,
		ActorID:   manager.ID,
		Payload: events.AuditStatusChangedPayload{
			AuditID:        audit.ID,
			Name:           audit.Name,
			OrganizationID: audit.OrganizationID,
			OldStatus:      oldStatus,
			NewStatus:      audit.Status,
		},
	})
	return Result[*domain.Audit]{Value: audit, NotificationFailed: failed}, nil
}

// ListAudits returns audits visible to the caller, by scheduled date.
func (s *AuditService) ListAudits(ctx context.Context, userID string, filter AuditListFilter) ([]domain.Audit, error) {
	user, err := s.gate.Require(ctx, userID, domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee)
	if err != nil {
		return nil, err
	}
	orgID, cbID, err := scopedFilter(user, filter.OrganizationID, filter.CertificationBodyID)
	if err != nil {
		return nil, err
	}
	repoFilter := repository.AuditFilter{
		OrganizationID:      orgID,
		CertificationBodyID: cbID,
		ScheduledFrom:       filter.From,
		ScheduledTo:         filter.To,
		Limit:               filter.Limit,
		Offset:              filter.Offset,
	}
	if filter.Status != nil {
		st, err := domain.ParseAuditStatus(*filter.Status)
		if err != nil {
			return nil, apperrors.NewBadRequest("invalid audit status")
		}
		repoFilter.Status = &st
	}
	items, err := s.store.Audits().List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// GetAudit loads one audit the caller may see.
func (s *AuditService) GetAudit(ctx context.Context, userID, auditID string) (*domain.Audit, error) {
	user, err := s.gate.Require(ctx, userID)
	if err != nil {
		return nil, err
	}
	audit, err := s.store.Audits().GetByID(ctx, auditID)
	if err != nil {
		return nil, storeError(err, "audit")
	}
	if !canSee(user, audit.OrganizationID, audit.CertificationBodyID) {
		return nil, apperrors.NewForbidden("audit belongs to another organization or certification body")
	}
	return audit, nil
}

// ListAuditRequests returns the requests sent by the caller's organization or
// addressed to the caller's certification body.
func (s *AuditService) ListAuditRequests(ctx context.Context, userID string, status *domain.RequestStatus, page Page) ([]domain.AuditRequest, error) {
	user, err := s.gate.Require(ctx, userID, domain.RoleAdmin, domain.RoleManager)
	if err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.NewBadRequest("invalid request status")
	}
	orgID, cbID, err := scopedFilter(user, nil, nil)
	if err != nil {
		return nil, err
	}
	items, err := s.store.AuditRequests().List(ctx, repository.AuditRequestFilter{
		OrganizationID:      orgID,
		CertificationBodyID: cbID,
		Status:              status,
		Limit:               page.Limit,
		Offset:              page.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// resolveChecklist turns standard ids into fresh checklist items. Unknown ids
// fail the whole call.
func (s *AuditService) resolveChecklist(ctx context.Context, ids []string) ([]domain.ChecklistItem, error) {
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = trimmed(id); id != "" && !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, apperrors.NewBadRequest("at least one standard is required")
	}

	found, err := s.catalog.GetMany(ctx, unique)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(found) != len(unique) {
		var missing []string
		for _, id := range unique {
			if !slices.ContainsFunc(found, func(st domain.Standard) bool { return st.ID == id }) {
				missing = append(missing, id)
			}
		}
		return nil, apperrors.NewValidationError("unknown standards", map[string]any{"standard_ids": missing})
	}

	items := make([]domain.ChecklistItem, len(found))
	for i, st := range found {
		items[i] = st.ChecklistItem()
	}
	return items, nil
}
