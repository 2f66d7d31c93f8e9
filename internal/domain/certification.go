package domain

import "time"

// CertificationStatus tracks whether a certificate is valid.
type CertificationStatus string

const (
	CertificationIssued  CertificationStatus = "issued"
	CertificationRevoked CertificationStatus = "revoked"
)

// CertificateDetails is the content printed on the certificate.
type CertificateDetails struct {
	RecipientName    string `json:"recipient_name"`
	OrganizationName string `json:"organization_name"`
	Standard         string `json:"standard"`
	ComplianceStatus string `json:"compliance_status"`
}

// Certification is the issued outcome of a completed audit.
type Certification struct {
	ID                  string
	CertificateNumber   string
	AuditID             string
	OrganizationID      string
	CertificationBodyID string
	IssuerID            string
	IssuedDate          time.Time
	Status              CertificationStatus
	ArtifactRef         string
	Details             CertificateDetails
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
