package dto

import "time"

// CreationRequestPayload proposes a new organization or certification body.
type CreationRequestPayload struct {
	Name         string `json:"name" validate:"required,max=200"`
	Address      string `json:"address" validate:"max=500"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=50"`
	Description  string `json:"description" validate:"max=2000"`
}

// DecisionRequest carries an optional comment for approve/reject actions.
type DecisionRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// CreationRequestResponse is a creation request as listed to admins and guests.
type CreationRequestResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	GuestID      string    `json:"guest_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	AdminComment string    `json:"admin_comment,omitempty"`
	EntityID     *string   `json:"entity_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InviteRequest invites an email into the caller's scope.
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=employee manager"`
}

// AcceptInvitationRequest accepts an invitation as the authenticated guest.
type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

// RevokeInvitationRequest names the invitation to withdraw.
type RevokeInvitationRequest struct {
	InvitationID string `json:"invitation_id" validate:"required,uuid"`
}

// InvitationResponse omits the token, which only travels by email.
type InvitationResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	ScopeKind   string     `json:"scope_kind"`
	ScopeID     string     `json:"scope_id"`
	InvitedByID string     `json:"invited_by_id"`
	Status      string     `json:"status"`
	IsUsed      bool       `json:"is_used"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EntityResponse is an organization or a certification body.
type EntityResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	CreatedAt    time.Time `json:"created_at"`
}
