package domain

import (
	"fmt"
	"time"
)

// EntityKind distinguishes organization and certification body creation requests.
type EntityKind string

const (
	EntityOrganization      EntityKind = "organization"
	EntityCertificationBody EntityKind = "certification_body"
)

func ParseEntityKind(raw string) (EntityKind, error) {
	switch k := EntityKind(raw); k {
	case EntityOrganization, EntityCertificationBody:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", raw)
}

// Affiliation binds a new entity id of this kind to a user scope.
func (k EntityKind) Affiliation(id string) Affiliation {
	if k == EntityCertificationBody {
		return OfCertificationBody(id)
	}
	return OfOrganization(id)
}

// RequestStatus is shared by creation requests and audit requests.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// CreationRequest is a guest's proposal to found an organization or certification body.
type CreationRequest struct {
	ID           string
	Kind         EntityKind
	GuestID      string
	Name         string
	Address      string
	ContactEmail string
	ContactPhone string
	Description  string
	Status       RequestStatus
	AdminComment string
	EntityID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
