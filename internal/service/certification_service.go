package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/certificate"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

const defaultComplianceStatus = "Compliant"

// CertificationService issues certificates for completed audits.
type CertificationService struct {
	base
	renderer certificate.Renderer
}

// CertificationDependencies bundles the requirements of the certification service.
type CertificationDependencies struct {
	Dependencies
	Renderer certificate.Renderer
}

// IssueCertificationInput describes the certificate to produce.
type IssueCertificationInput struct {
	AuditID    string
	IssuedDate time.Time
	Details    domain.CertificateDetails
}

// CertificationListFilter narrows certification listings.
type CertificationListFilter struct {
	OrganizationID      *string
	CertificationBodyID *string
	Status              *domain.CertificationStatus
	Page
}

func NewCertificationService(deps CertificationDependencies) *CertificationService {
	return &CertificationService{base: newBase(deps.Dependencies), renderer: deps.Renderer}
}

// DownloadPath is the route serving a certificate artifact.
func DownloadPath(certificationID string) string {
	return "/certification/download/" + certificationID
}

// Issue renders and records the certificate of a completed audit of the
// caller's certification body. An audit is certified at most once.
func (s *CertificationService) Issue(ctx context.Context, managerID string, input IssueCertificationInput) (Result[*domain.Certification], error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return Result[*domain.Certification]{}, err
	}
	scope, err := scopeOf(manager, domain.EntityCertificationBody)
	if err != nil {
		return Result[*domain.Certification]{}, err
	}
	audit, err := s.store.Audits().GetByID(ctx, input.AuditID)
	if err != nil {
		return Result[*domain.Certification]{}, storeError(err, "audit")
	}
	if audit.CertificationBodyID != scope.ID() {
		return Result[*domain.Certification]{}, apperrors.NewForbidden("audit belongs to another certification body")
	}
	if audit.Status != domain.AuditCompleted {
		return Result[*domain.Certification]{}, apperrors.NewBadRequest("audit is not completed")
	}
	if _, err := s.store.Certifications().GetByAuditID(ctx, audit.ID); err == nil {
		return Result[*domain.Certification]{}, apperrors.NewConflict("audit already has a certification", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Result[*domain.Certification]{}, apperrors.NewInternalError(err)
	}

	org, err := s.store.Organizations().GetByID(ctx, audit.OrganizationID)
	if err != nil {
		return Result[*domain.Certification]{}, storeError(err, "organization")
	}
	body, err := s.store.CertificationBodies().GetByID(ctx, audit.CertificationBodyID)
	if err != nil {
		return Result[*domain.Certification]{}, storeError(err, "certification body")
	}

	issued := input.IssuedDate
	if issued.IsZero() {
		issued = s.clock()
	}
	details := completeDetails(input.Details, org, audit)
	cert := &domain.Certification{
		ID:                  uuid.NewString(),
		CertificateNumber:   ulid.Make().String(),
		AuditID:             audit.ID,
		OrganizationID:      audit.OrganizationID,
		CertificationBodyID: audit.CertificationBodyID,
		IssuerID:            manager.ID,
		IssuedDate:          issued.UTC(),
		Status:              domain.CertificationIssued,
		Details:             details,
	}

	cert.ArtifactRef, err = s.renderer.Render(ctx, certificate.Document{
		CertificateNumber: cert.CertificateNumber,
		IssuedDate:        cert.IssuedDate.Format("2006-01-02"),
		IssuerBody:        body.Name,
		Details:           details,
		Checklist:         audit.Checklist,
	})
	if err != nil {
		return Result[*domain.Certification]{}, apperrors.NewInternalError(err)
	}
	if err := s.store.Certifications().Create(ctx, cert); err != nil {
		if derr := s.renderer.Discard(ctx, cert.ArtifactRef); derr != nil {
			s.logger.Warn("failed to discard certificate artifact", zap.String("artifact", cert.ArtifactRef), zap.Error(derr))
		}
		if errors.Is(err, repository.ErrConflict) {
			return Result[*domain.Certification]{}, apperrors.NewConflict("audit already has a certification", nil)
		}
		return Result[*domain.Certification]{}, apperrors.NewInternalError(err)
	}
	s.transition("certification", string(domain.CertificationIssued))
	s.logger.Info("certification issued",
		zap.String("certification_id", cert.ID),
		zap.String("certificate_number", cert.CertificateNumber),
		zap.String("audit_id", audit.ID))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventCertificationIssued,
		SubjectID: cert.ID,
		ActorID:   manager.ID,
		Payload: events.CertificationIssuedPayload{
			CertificationID:   cert.ID,
			CertificateNumber: cert.CertificateNumber,
			OrganizationID:    cert.OrganizationID,
			DownloadPath:      DownloadPath(cert.ID),
		},
	})
	return Result[*domain.Certification]{Value: cert, NotificationFailed: failed}, nil
}

// Revoke invalidates a certificate issued by the caller's certification body.
func (s *CertificationService) Revoke(ctx context.Context, managerID, certificationID string) (Result[*domain.Certification], error) {
	manager, err := s.gate.Require(ctx, managerID, domain.RoleManager)
	if err != nil {
		return Result[*domain.Certification]{}, err
	}
	scope, err := scopeOf(manager, domain.EntityCertificationBody)
	if err != nil {
		return Result[*domain.Certification]{}, err
	}
	cert, err := s.store.Certifications().GetByID(ctx, certificationID)
	if err != nil {
		return Result[*domain.Certification]{}, storeError(err, "certification")
	}
	if cert.CertificationBodyID != scope.ID() {
		return Result[*domain.Certification]{}, apperrors.NewForbidden("certification was issued by another certification body")
	}
	if cert.Status == domain.CertificationRevoked {
		return Result[*domain.Certification]{}, apperrors.NewBadRequest("certification is already revoked")
	}
	cert.Status = domain.CertificationRevoked
	if err := s.store.Certifications().Update(ctx, cert); err != nil {
		return Result[*domain.Certification]{}, storeError(err, "certification")
	}
	s.transition("certification", string(domain.CertificationRevoked))

	failed := s.publishEvent(ctx, events.Event{
		Type:      events.EventCertificationRevoked,
		SubjectID: cert.ID,
		ActorID:   manager.ID,
		Payload: events.CertificationRevokedPayload{
			CertificationID:   cert.ID,
			CertificateNumber: cert.CertificateNumber,
			OrganizationID:    cert.OrganizationID,
		},
	})
	return Result[*domain.Certification]{Value: cert, NotificationFailed: failed}, nil
}

// Download returns a valid certificate of one of the caller's parties. The
// artifact reference locates the rendered file.
func (s *CertificationService) Download(ctx context.Context, userID, certificationID string) (*domain.Certification, error) {
	cert, err := s.Get(ctx, userID, certificationID)
	if err != nil {
		return nil, err
	}
	if cert.Status == domain.CertificationRevoked {
		return nil, apperrors.NewBadRequest("certification has been revoked")
	}
	return cert, nil
}

// Get loads a certification the caller may see.
func (s *CertificationService) Get(ctx context.Context, userID, certificationID string) (*domain.Certification, error) {
	user, err := s.gate.Require(ctx, userID)
	if err != nil {
		return nil, err
	}
	cert, err := s.store.Certifications().GetByID(ctx, certificationID)
	if err != nil {
		return nil, storeError(err, "certification")
	}
	if !canSee(user, cert.OrganizationID, cert.CertificationBodyID) {
		return nil, apperrors.NewForbidden("certification belongs to another organization or certification body")
	}
	return cert, nil
}

// List returns certifications visible to the caller, newest first.
func (s *CertificationService) List(ctx context.Context, userID string, filter CertificationListFilter) ([]domain.Certification, error) {
	user, err := s.gate.Require(ctx, userID, domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee)
	if err != nil {
		return nil, err
	}
	orgID, cbID, err := scopedFilter(user, filter.OrganizationID, filter.CertificationBodyID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Certifications().List(ctx, repository.CertificationFilter{
		OrganizationID:      orgID,
		CertificationBodyID: cbID,
		Status:              filter.Status,
		Limit:               filter.Limit,
		Offset:              filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// completeDetails fills blank certificate fields from the audit and organization.
func completeDetails(d domain.CertificateDetails, org *domain.Organization, audit *domain.Audit) domain.CertificateDetails {
	d.RecipientName = trimmed(d.RecipientName)
	d.OrganizationName = trimmed(d.OrganizationName)
	d.Standard = trimmed(d.Standard)
	d.ComplianceStatus = trimmed(d.ComplianceStatus)
	if d.OrganizationName == "" {
		d.OrganizationName = org.Name
	}
	if d.RecipientName == "" {
		d.RecipientName = org.Name
	}
	if d.Standard == "" {
		names := make([]string, 0, len(audit.Checklist))
		for _, item := range audit.Checklist {
			names = append(names, item.Standard)
		}
		d.Standard = strings.Join(names, ", ")
	}
	if d.ComplianceStatus == "" {
		d.ComplianceStatus = defaultComplianceStatus
	}
	return d
}
