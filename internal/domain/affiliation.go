package domain

import (
	"errors"
	"strings"
)

// ErrAmbiguousAffiliation is returned when both scope columns are populated.
var ErrAmbiguousAffiliation = errors.New("affiliation cannot reference both an organization and a certification body")

// AffiliationKind tags the variant held by an Affiliation.
type AffiliationKind string

const (
	AffiliationNone              AffiliationKind = ""
	AffiliationOrganization      AffiliationKind = "organization"
	AffiliationCertificationBody AffiliationKind = "certification_body"
)

// Affiliation is the exclusive membership of a user or invitation scope:
// unaffiliated, an organization, or a certification body.
// The zero value is Unaffiliated.
type Affiliation struct {
	kind AffiliationKind
	id   string
}

// Unaffiliated returns the empty affiliation.
func Unaffiliated() Affiliation { return Affiliation{} }

// OfOrganization scopes to an organization.
func OfOrganization(id string) Affiliation {
	if strings.TrimSpace(id) == "" {
		return Affiliation{}
	}
	return Affiliation{kind: AffiliationOrganization, id: id}
}

// OfCertificationBody scopes to a certification body.
func OfCertificationBody(id string) Affiliation {
	if strings.TrimSpace(id) == "" {
		return Affiliation{}
	}
	return Affiliation{kind: AffiliationCertificationBody, id: id}
}

// AffiliationFromColumns rebuilds an affiliation from two nullable foreign keys.
func AffiliationFromColumns(organizationID, certificationBodyID *string) (Affiliation, error) {
	org := organizationID != nil && *organizationID != ""
	cb := certificationBodyID != nil && *certificationBodyID != ""
	switch {
	case org && cb:
		return Affiliation{}, ErrAmbiguousAffiliation
	case org:
		return OfOrganization(*organizationID), nil
	case cb:
		return OfCertificationBody(*certificationBodyID), nil
	default:
		return Unaffiliated(), nil
	}
}

// Columns splits the affiliation into nullable foreign keys for storage.
func (a Affiliation) Columns() (organizationID, certificationBodyID *string) {
	switch a.kind {
	case AffiliationOrganization:
		id := a.id
		return &id, nil
	case AffiliationCertificationBody:
		id := a.id
		return nil, &id
	}
	return nil, nil
}

func (a Affiliation) Kind() AffiliationKind { return a.kind }
func (a Affiliation) ID() string { return a.id }

// IsUnaffiliated reports whether no scope is set.
func (a Affiliation) IsUnaffiliated() bool { return a.kind == AffiliationNone }

// OrganizationID returns the organization id when the affiliation is an organization.
func (a Affiliation) OrganizationID() (string, bool) {
	return a.id, a.kind == AffiliationOrganization
}

// CertificationBodyID returns the certification body id when the affiliation is one.
func (a Affiliation) CertificationBodyID() (string, bool) {
	return a.id, a.kind == AffiliationCertificationBody
}

func (a Affiliation) Equal(other Affiliation) bool {
	return a.kind == other.kind && a.id == other.id
}

func (a Affiliation) String() string {
	if a.kind == AffiliationNone {
		return "unaffiliated"
	}
	return string(a.kind) + ":" + a.id
}
