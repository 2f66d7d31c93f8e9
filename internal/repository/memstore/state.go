package memstore

import (
	"slices"
	"time"

	"github.com/spec-kit/certification-service/internal/domain"
)

type state struct {
	next int64

	users               table[domain.User]
	organizations       table[domain.Organization]
	certificationBodies table[domain.CertificationBody]
	invitations         table[domain.Invitation]
	creationRequests    table[domain.CreationRequest]
	auditRequests       table[domain.AuditRequest]
	audits              table[domain.Audit]
	certifications      table[domain.Certification]
	revokedTokens       table[domain.RevokedToken]
}

func newState() *state {
	return &state{
		users:               newTable[domain.User](),
		organizations:       newTable[domain.Organization](),
		certificationBodies: newTable[domain.CertificationBody](),
		invitations:         newTable[domain.Invitation](),
		creationRequests:    newTable[domain.CreationRequest](),
		auditRequests:       newTable[domain.AuditRequest](),
		audits:              newTable[domain.Audit](),
		certifications:      newTable[domain.Certification](),
		revokedTokens:       newTable[domain.RevokedToken](),
	}
}

func (d *state) clone() *state {
	return &state{
		next:                d.next,
		users:               d.users.clone(same[domain.User]),
		organizations:       d.organizations.clone(same[domain.Organization]),
		certificationBodies: d.certificationBodies.clone(same[domain.CertificationBody]),
		invitations:         d.invitations.clone(copyInvitation),
		creationRequests:    d.creationRequests.clone(copyCreationRequest),
		auditRequests:       d.auditRequests.clone(copyAuditRequest),
		audits:              d.audits.clone(copyAudit),
		certifications:      d.certifications.clone(same[domain.Certification]),
		revokedTokens:       d.revokedTokens.clone(same[domain.RevokedToken]),
	}
}

func (d *state) seq() int64 {
	d.next++
	return d.next
}

// same copies types whose fields are all values.
func same[T any](v T) T { return v }

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInvitation(inv domain.Invitation) domain.Invitation {
	inv.RespondedAt = copyTime(inv.RespondedAt)
	return inv
}

func copyCreationRequest(req domain.CreationRequest) domain.CreationRequest {
	req.EntityID = copyString(req.EntityID)
	return req
}

func copyAuditRequest(req domain.AuditRequest) domain.AuditRequest {
	req.StandardIDs = slices.Clone(req.StandardIDs)
	req.DecidedByID = copyString(req.DecidedByID)
	req.AuditID = copyString(req.AuditID)
	return req
}

func copyAudit(a domain.Audit) domain.Audit {
	a.AuditRequestID = copyString(a.AuditRequestID)
	a.Checklist = slices.Clone(a.Checklist)
	return a
}
