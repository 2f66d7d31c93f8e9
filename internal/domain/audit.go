package domain

import (
	"fmt"
	"time"
)

// AuditStatus tracks the progress of an audit.
type AuditStatus string

const (
	AuditScheduled  AuditStatus = "scheduled"
	AuditInProgress AuditStatus = "in_progress"
	AuditCompleted  AuditStatus = "completed"
)

var auditStatusRank = map[AuditStatus]int{
	AuditScheduled:  0,
	AuditInProgress: 1,
	AuditCompleted:  2,
}

// ParseAuditStatus validates a status string.
func ParseAuditStatus(raw string) (AuditStatus, error) {
	s := AuditStatus(raw)
	if _, ok := auditStatusRank[s]; !ok {
		return "", fmt.Errorf("invalid audit status %q", raw)
	}
	return s, nil
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
func (s AuditStatus) CanTransitionTo(next AuditStatus) bool {
	from, ok := auditStatusRank[s]
	if !ok {
		return false
	}
	to, ok := auditStatusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// ChecklistItem is a standard materialized into an audit.
type ChecklistItem struct {
	StandardID       string `json:"standard_id"`
	Standard         string `json:"standard"`
	Requirements     string `json:"requirements"`
	ComplianceStatus bool   `json:"compliance_status"`
}

// Audit ties an organization to a certification body for a compliance review.
type Audit struct {
	ID                  string
	Name                string
	OrganizationID      string
	CertificationBodyID string
	ManagerID           string
	AuditRequestID      *string
	ScheduledDate       time.Time
	Status              AuditStatus
	Checklist           []ChecklistItem
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AuditRequest is an organization's proposal for an audit by a certification body.
type AuditRequest struct {
	ID                  string
	Name                string
	OrganizationID      string
	CertificationBodyID string
	RequestedByID       string
	StandardIDs         []string
	ScheduledDate       time.Time
	Status              RequestStatus
	DecidedByID         *string
	Comment             string
	AuditID             *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
