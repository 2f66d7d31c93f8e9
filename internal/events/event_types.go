package events

import (
	"time"

	"github.com/spec-kit/certification-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventInvitationIssued           EventType = "invitation_issued"
	EventInvitationAccepted         EventType = "invitation_accepted"
	EventInvitationRevoked          EventType = "invitation_revoked"
	EventCreationRequestSubmitted   EventType = "creation_request_submitted"
	EventCreationRequestDecided     EventType = "creation_request_decided"
	EventAuditRequested             EventType = "audit_requested"
	EventAuditRequestDecided        EventType = "audit_request_decided"
	EventAuditCreated               EventType = "audit_created"
	EventAuditStatusChanged         EventType = "audit_status_changed"
	EventCertificationIssued        EventType = "certification_issued"
	EventCertificationRevoked       EventType = "certification_revoked"
	EventEmailConfirmationRequested EventType = "email_confirmation_requested"
	EventPasswordResetRequested     EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type InvitationIssuedPayload struct {
	InvitationID string             `json:"invitation_id"`
	Email        string             `json:"email"`
	Role         domain.Role        `json:"role"`
	Scope        domain.Affiliation `json:"-"`
	ScopeName    string             `json:"scope_name"`
	Token        string             `json:"-"`
	ExistingUser bool               `json:"existing_user"`
	ExpiresAt    time.Time          `json:"expires_at"`
}

type InvitationAcceptedPayload struct {
	InvitationID string      `json:"invitation_id"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	ScopeName    string      `json:"scope_name"`
}

type InvitationRevokedPayload struct {
	InvitationID string `json:"invitation_id"`
	Email        string `json:"email"`
	ScopeName    string `json:"scope_name"`
}

type CreationRequestSubmittedPayload struct {
	RequestID  string            `json:"request_id"`
	Kind       domain.EntityKind `json:"kind"`
	Name       string            `json:"name"`
	GuestEmail string            `json:"guest_email"`
}

type CreationRequestDecidedPayload struct {
	RequestID string               `json:"request_id"`
	Kind      domain.EntityKind    `json:"kind"`
	Name      string               `json:"name"`
	GuestID   string               `json:"guest_id"`
	Status    domain.RequestStatus `json:"status"`
	Comment   string               `json:"comment,omitempty"`
}

type AuditRequestedPayload struct {
	AuditRequestID      string    `json:"audit_request_id"`
	Name                string    `json:"name"`
	OrganizationID      string    `json:"organization_id"`
	CertificationBodyID string    `json:"certification_body_id"`
	ScheduledDate       time.Time `json:"scheduled_date"`
}

type AuditRequestDecidedPayload struct {
	AuditRequestID string               `json:"audit_request_id"`
	Name           string               `json:"name"`
	OrganizationID string               `json:"organization_id"`
	Status         domain.RequestStatus `json:"status"`
	Comment        string               `json:"comment,omitempty"`
	AuditID        *string              `json:"audit_id,omitempty"`
}

type AuditCreatedPayload struct {
	AuditID             string    `json:"audit_id"`
	Name                string    `json:"name"`
	OrganizationID      string    `json:"organization_id"`
	CertificationBodyID string    `json:"certification_body_id"`
	ScheduledDate       time.Time `json:"scheduled_date"`
}

type AuditStatusChangedPayload struct {
	AuditID        string             `json:"audit_id"`
	Name           string             `json:"name"`
	OrganizationID string             `json:"organization_id"`
	OldStatus      domain.AuditStatus `json:"old_status"`
	NewStatus      domain.AuditStatus `json:"new_status"`
}

type CertificationIssuedPayload struct {
	CertificationID   string `json:"certification_id"`
	CertificateNumber string `json:"certificate_number"`
	OrganizationID    string `json:"organization_id"`
	DownloadPath      string `json:"download_path"`
}

type CertificationRevokedPayload struct {
	CertificationID   string `json:"certification_id"`
	CertificateNumber string `json:"certificate_number"`
	OrganizationID    string `json:"organization_id"`
}

// AccountTokenPayload carries a signed account token to the user it was made for.
type AccountTokenPayload struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Token    string `json:"-"`
}
