package dto

import (
	"time"

	"github.com/spec-kit/certification-service/internal/domain"
)

// CertificateDetailsPayload overrides what is printed on the certificate.
type CertificateDetailsPayload struct {
	RecipientName    string `json:"recipient_name" validate:"max=200"`
	OrganizationName string `json:"organization_name" validate:"max=200"`
	Standard         string `json:"standard" validate:"max=500"`
	ComplianceStatus string `json:"compliance_status" validate:"max=100"`
}

// IssueCertificationPayload requests a certificate for a completed audit.
type IssueCertificationPayload struct {
	AuditID            string                    `json:"audit_id" validate:"required,uuid"`
	IssuedDate         *time.Time                `json:"issued_date"`
	CertificateDetails CertificateDetailsPayload `json:"certificate_details"`
}

// CertificationResponse is an issued or revoked certificate.
type CertificationResponse struct {
	ID                  string                    `json:"id"`
	CertificateNumber   string                    `json:"certificate_number"`
	AuditID             string                    `json:"audit_id"`
	OrganizationID      string                    `json:"organization_id"`
	CertificationBodyID string                    `json:"certification_body_id"`
	IssuerID            string                    `json:"issuer_id"`
	IssuedDate          time.Time                 `json:"issued_date"`
	Status              string                    `json:"status"`
	Details             domain.CertificateDetails `json:"certificate_details"`
	DownloadURL         string                    `json:"download_url,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
}
