package domain

import "time"

// InvitationTTL bounds how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

// InvitationStatus represents the lifecycle of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return true
	}
	return false
}

// Invitation grants Role within Scope to Email once accepted.
type Invitation struct {
	ID          string
	Email       string
	Role        Role
	Scope       Affiliation
	InvitedByID string
	Token       string
	ExpiresAt   time.Time
	IsUsed      bool
	Status      InvitationStatus
	RespondedAt *time.Time
	CreatedAt   time.Time
}

// ExpiredAt reports whether the invitation is past its expiry at now.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Outstanding reports whether the invitation still blocks a new one for the same email and scope.
func (i *Invitation) Outstanding(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsUsed && !i.ExpiredAt(now)
}

// InvitationClaims is the payload embedded in an invitation token.
type InvitationClaims struct {
	InvitationID string `json:"invitation_id"`
	Role         Role   `json:"role"`
}
