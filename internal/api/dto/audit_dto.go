package dto

import (
	"time"

	"github.com/spec-kit/certification-service/internal/domain"
)

// AuditRequestPayload is an organization's request for an audit.
type AuditRequestPayload struct {
	CertificationBodyID string    `json:"certification_body_id" validate:"required,uuid"`
	Name                string    `json:"name" validate:"required,max=200"`
	StandardIDs         []string  `json:"standard_ids" validate:"required,min=1,dive,required"`
	ScheduledDate       time.Time `json:"scheduled_date" validate:"required"`
}

// DirectAuditPayload schedules an audit without a request.
type DirectAuditPayload struct {
	OrganizationID string    `json:"organization_id" validate:"required,uuid"`
	Name           string    `json:"name" validate:"required,max=200"`
	StandardIDs    []string  `json:"standard_ids" validate:"required,min=1,dive,required"`
	ScheduledDate  time.Time `json:"scheduled_date" validate:"required"`
}

// ChecklistUpdatePayload sets one compliance flag.
type ChecklistUpdatePayload struct {
	StandardID       string `json:"standard_id" validate:"required"`
	ComplianceStatus bool   `json:"compliance_status"`
}

// AuditUpdatePayload lists optional audit changes.
type AuditUpdatePayload struct {
	Name          *string                  `json:"name" validate:"omitempty,min=1,max=200"`
	ScheduledDate *time.Time               `json:"scheduled_date"`
	Status        *string                  `json:"status" validate:"omitempty,oneof=scheduled in_progress completed"`
	Checklist     []ChecklistUpdatePayload `json:"checklist" validate:"dive"`
}

// AuditResponse is an audit with its checklist.
type AuditResponse struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	OrganizationID      string                 `json:"organization_id"`
	CertificationBodyID string                 `json:"certification_body_id"`
	ManagerID           string                 `json:"manager_id"`
	AuditRequestID      *string                `json:"audit_request_id,omitempty"`
	ScheduledDate       time.Time              `json:"scheduled_date"`
	Status              string                 `json:"status"`
	Checklist           []domain.ChecklistItem `json:"checklist"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// AuditRequestResponse is an audit request and its decision.
type AuditRequestResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	OrganizationID      string    `json:"organization_id"`
	CertificationBodyID string    `json:"certification_body_id"`
	RequestedByID       string    `json:"requested_by_id"`
	StandardIDs         []string  `json:"standard_ids"`
	ScheduledDate       time.Time `json:"scheduled_date"`
	Status              string    `json:"status"`
	DecidedByID         *string   `json:"decided_by_id,omitempty"`
	Comment             string    `json:"comment,omitempty"`
	AuditID             *string   `json:"audit_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
