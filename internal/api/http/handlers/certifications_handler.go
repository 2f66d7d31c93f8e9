package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/certificate"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/service"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// CertificationsHandler issues, lists and serves certificates.
type CertificationsHandler struct {
	certs *service.CertificationService
}

func NewCertificationsHandler(certs *service.CertificationService) *CertificationsHandler {
	return &CertificationsHandler{certs: certs}
}

// Issue handles POST /certification/certificates.
func (h *CertificationsHandler) Issue(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.IssueCertificationPayload
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	input := service.IssueCertificationInput{
		AuditID: req.AuditID,
		Details: domain.CertificateDetails{
			RecipientName:    req.CertificateDetails.RecipientName,
			OrganizationName: req.CertificateDetails.OrganizationName,
			Standard:         req.CertificateDetails.Standard,
			ComplianceStatus: req.CertificateDetails.ComplianceStatus,
		},
	}
	if req.IssuedDate != nil {
		input.IssuedDate = *req.IssuedDate
	}
	res, err := h.certs.Issue(c.UserContext(), managerID, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toCertificationResponse(res.Value), res.NotificationFailed)
}

// List handles GET /certification/certificates.
func (h *CertificationsHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	orgID, err := idQuery(c, "organization_id")
	if err != nil {
		return err
	}
	cbID, err := idQuery(c, "certification_body_id")
	if err != nil {
		return err
	}
	filter := service.CertificationListFilter{
		OrganizationID:      orgID,
		CertificationBodyID: cbID,
		Page:                page,
	}
	if raw := optionalQuery(c, "status"); raw != nil {
		status := domain.CertificationStatus(*raw)
		if status != domain.CertificationIssued && status != domain.CertificationRevoked {
			return apperrors.NewBadRequest("invalid status")
		}
		filter.Status = &status
	}
	items, err := h.certs.List(c.UserContext(), userID, filter)
	if err != nil {
		return err
	}
	out := make([]dto.CertificationResponse, 0, len(items))
	for i := range items {
		out = append(out, toCertificationResponse(&items[i]))
	}
	return respond(c, http.StatusOK, out, false)
}

// Get handles GET /certification/certificates/:id.
func (h *CertificationsHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	certID, err := pathID(c, "certification")
	if err != nil {
		return err
	}
	cert, err := h.certs.Get(c.UserContext(), userID, certID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toCertificationResponse(cert), false)
}

// Revoke handles POST /certification/certificates/:id/revoke.
func (h *CertificationsHandler) Revoke(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	certID, err := pathID(c, "certification")
	if err != nil {
		return err
	}
	res, err := h.certs.Revoke(c.UserContext(), managerID, certID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toCertificationResponse(res.Value), res.NotificationFailed)
}

// Download handles GET /certification/download/:id and streams the PDF.
func (h *CertificationsHandler) Download(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	certID, err := pathID(c, "certification")
	if err != nil {
		return err
	}
	cert, err := h.certs.Download(c.UserContext(), userID, certID)
	if err != nil {
		return err
	}
	if err := c.Download(cert.ArtifactRef, certificate.FileName(cert.CertificateNumber)); err != nil {
		return apperrors.NewNotFound("certificate file", nil)
	}
	return nil
}
