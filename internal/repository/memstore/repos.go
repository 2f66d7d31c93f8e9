package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository"
)

func conflict(what string) error {
	return fmt.Errorf("%w: %s", repository.ErrConflict, what)
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.write(func(d *state) error {
		email := domain.NormalizeEmail(user.Email)
		if d.users.exists(func(u domain.User) bool { return u.Email == email }) {
			return conflict("users_email_key")
		}
		now := r.s.now()
		user.Email = email
		user.CreatedAt, user.UpdatedAt = now, now
		d.users.rows[user.ID] = *user
		d.users.seq[user.ID] = d.seq()
		return nil
	})
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	return r.s.write(func(d *state) error {
		current, ok := d.users.rows[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		email := domain.NormalizeEmail(user.Email)
		if d.users.exists(func(u domain.User) bool { return u.ID != user.ID && u.Email == email }) {
			return conflict("users_email_key")
		}
		user.Email = email
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = r.s.now()
		d.users.rows[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id string) (out *domain.User, err error) {
	r.s.read(func(d *state) { out, err = d.users.get(id, same[domain.User]) })
	return
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (out *domain.User, err error) {
	email = domain.NormalizeEmail(email)
	r.s.read(func(d *state) {
		out, err = d.users.find(func(u domain.User) bool { return u.Email == email }, same[domain.User])
	})
	return
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) (out []domain.User, err error) {
	r.s.read(func(d *state) {
		out = d.users.list(func(u domain.User) bool {
			if len(filter.Roles) > 0 && !u.HasRole(filter.Roles...) {
				return false
			}
			if filter.Affiliation != nil && !u.Affiliation.Equal(*filter.Affiliation) {
				return false
			}
			return true
		}, false, filter.Limit, filter.Offset, same[domain.User])
	})
	return
}

type organizationRepo struct{ s *Store }

func (r *organizationRepo) Create(_ context.Context, org *domain.Organization) error {
	return r.s.write(func(d *state) error {
		if d.organizations.exists(func(o domain.Organization) bool { return strings.EqualFold(o.Name, org.Name) }) {
			return conflict("organizations_name_key")
		}
		now := r.s.now()
		org.CreatedAt, org.UpdatedAt = now, now
		d.organizations.rows[org.ID] = *org
		d.organizations.seq[org.ID] = d.seq()
		return nil
	})
}

func (r *organizationRepo) GetByID(_ context.Context, id string) (out *domain.Organization, err error) {
	r.s.read(func(d *state) { out, err = d.organizations.get(id, same[domain.Organization]) })
	return
}

func (r *organizationRepo) GetByName(_ context.Context, name string) (out *domain.Organization, err error) {
	r.s.read(func(d *state) {
		out, err = d.organizations.find(func(o domain.Organization) bool {
			return strings.EqualFold(o.Name, name)
		}, same[domain.Organization])
	})
	return
}

func (r *organizationRepo) List(_ context.Context, limit, offset int) (out []domain.Organization, err error) {
	r.s.read(func(d *state) { out = d.organizations.list(nil, false, limit, offset, same[domain.Organization]) })
	return
}

type certificationBodyRepo struct{ s *Store }

func (r *certificationBodyRepo) Create(_ context.Context, cb *domain.CertificationBody) error {
	return r.s.write(func(d *state) error {
		if d.certificationBodies.exists(func(c domain.CertificationBody) bool { return strings.EqualFold(c.Name, cb.Name) }) {
			return conflict("certification_bodies_name_key")
		}
		now := r.s.now()
		cb.CreatedAt, cb.UpdatedAt = now, now
		d.certificationBodies.rows[cb.ID] = *cb
		d.certificationBodies.seq[cb.ID] = d.seq()
		return nil
	})
}

func (r *certificationBodyRepo) GetByID(_ context.Context, id string) (out *domain.CertificationBody, err error) {
	r.s.read(func(d *state) { out, err = d.certificationBodies.get(id, same[domain.CertificationBody]) })
	return
}

func (r *certificationBodyRepo) GetByName(_ context.Context, name string) (out *domain.CertificationBody, err error) {
	r.s.read(func(d *state) {
		out, err = d.certificationBodies.find(func(c domain.CertificationBody) bool {
			return strings.EqualFold(c.Name, name)
		}, same[domain.CertificationBody])
	})
	return
}

func (r *certificationBodyRepo) List(_ context.Context, limit, offset int) (out []domain.CertificationBody, err error) {
	r.s.read(func(d *state) {
		out = d.certificationBodies.list(nil, false, limit, offset, same[domain.CertificationBody])
	})
	return
}

type invitationRepo struct{ s *Store }

func (r *invitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	return r.s.write(func(d *state) error {
		email := domain.NormalizeEmail(inv.Email)
		if d.invitations.exists(func(i domain.Invitation) bool { return i.Token == inv.Token }) {
			return conflict("invitations_token_key")
		}
		if inv.Status == domain.InvitationPending && d.invitations.exists(func(i domain.Invitation) bool {
			return i.Status == domain.InvitationPending && i.Email == email && i.Scope.Equal(inv.Scope)
		}) {
			return conflict("invitations_pending_email_scope_idx")
		}
		inv.Email = email
		inv.CreatedAt = r.s.now()
		d.invitations.rows[inv.ID] = copyInvitation(*inv)
		d.invitations.seq[inv.ID] = d.seq()
		return nil
	})
}

func (r *invitationRepo) Update(_ context.Context, inv *domain.Invitation) error {
	return r.s.write(func(d *state) error {
		current, ok := d.invitations.rows[inv.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Token = inv.Token
		current.ExpiresAt = inv.ExpiresAt
		current.IsUsed = inv.IsUsed
		current.Status = inv.Status
		current.RespondedAt = copyTime(inv.RespondedAt)
		d.invitations.rows[inv.ID] = current
		return nil
	})
}

func (r *invitationRepo) Delete(_ context.Context, id string) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.invitations.rows[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.invitations.rows, id)
		delete(d.invitations.seq, id)
		return nil
	})
}

func (r *invitationRepo) GetByID(_ context.Context, id string) (out *domain.Invitation, err error) {
	r.s.read(func(d *state) { out, err = d.invitations.get(id, copyInvitation) })
	return
}

func (r *invitationRepo) GetPending(_ context.Context, id, token string) (out *domain.Invitation, err error) {
	r.s.read(func(d *state) {
		out, err = d.invitations.find(func(i domain.Invitation) bool {
			return i.ID == id && i.Token == token && i.Status == domain.InvitationPending && !i.IsUsed
		}, copyInvitation)
	})
	return
}

func (r *invitationRepo) List(_ context.Context, filter repository.InvitationFilter) (out []domain.Invitation, err error) {
	r.s.read(func(d *state) {
		out = d.invitations.list(func(i domain.Invitation) bool {
			if filter.Scope != nil && !i.Scope.Equal(*filter.Scope) {
				return false
			}
			if filter.Email != nil && i.Email != domain.NormalizeEmail(*filter.Email) {
				return false
			}
			if filter.Status != nil && i.Status != *filter.Status {
				return false
			}
			return true
		}, true, filter.Limit, filter.Offset, copyInvitation)
	})
	return
}

type creationRequestRepo struct{ s *Store }

func (r *creationRequestRepo) Create(_ context.Context, req *domain.CreationRequest) error {
	return r.s.write(func(d *state) error {
		if req.Status == domain.RequestPending && d.creationRequests.exists(func(c domain.CreationRequest) bool {
			return c.Status == domain.RequestPending && c.GuestID == req.GuestID && c.Kind == req.Kind
		}) {
			return conflict("creation_requests_pending_guest_kind_idx")
		}
		now := r.s.now()
		req.CreatedAt, req.UpdatedAt = now, now
		d.creationRequests.rows[req.ID] = copyCreationRequest(*req)
		d.creationRequests.seq[req.ID] = d.seq()
		return nil
	})
}

func (r *creationRequestRepo) Update(_ context.Context, req *domain.CreationRequest) error {
	return r.s.write(func(d *state) error {
		current, ok := d.creationRequests.rows[req.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Status = req.Status
		current.AdminComment = req.AdminComment
		current.EntityID = copyString(req.EntityID)
		current.UpdatedAt = r.s.now()
		req.UpdatedAt = current.UpdatedAt
		d.creationRequests.rows[req.ID] = current
		return nil
	})
}

func (r *creationRequestRepo) GetByID(_ context.Context, id string) (out *domain.CreationRequest, err error) {
	r.s.read(func(d *state) { out, err = d.creationRequests.get(id, copyCreationRequest) })
	return
}

func (r *creationRequestRepo) List(_ context.Context, filter repository.CreationRequestFilter) (out []domain.CreationRequest, err error) {
	r.s.read(func(d *state) {
		out = d.creationRequests.list(func(c domain.CreationRequest) bool {
			if filter.Kind != nil && c.Kind != *filter.Kind {
				return false
			}
			if filter.Status != nil && c.Status != *filter.Status {
				return false
			}
			if filter.GuestID != nil && c.GuestID != *filter.GuestID {
				return false
			}
			return true
		}, true, filter.Limit, filter.Offset, copyCreationRequest)
	})
	return
}

type auditRequestRepo struct{ s *Store }

func (r *auditRequestRepo) Create(_ context.Context, req *domain.AuditRequest) error {
	return r.s.write(func(d *state) error {
		now := r.s.now()
		req.CreatedAt, req.UpdatedAt = now, now
		d.auditRequests.rows[req.ID] = copyAuditRequest(*req)
		d.auditRequests.seq[req.ID] = d.seq()
		return nil
	})
}

func (r *auditRequestRepo) Update(_ context.Context, req *domain.AuditRequest) error {
	return r.s.write(func(d *state) error {
		current, ok := d.auditRequests.rows[req.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Status = req.Status
		current.DecidedByID = copyString(req.DecidedByID)
		current.Comment = req.Comment
		current.AuditID = copyString(req.AuditID)
		current.UpdatedAt = r.s.now()
		req.UpdatedAt = current.UpdatedAt
		d.auditRequests.rows[req.ID] = current
		return nil
	})
}

func (r *auditRequestRepo) GetByID(_ context.Context, id string) (out *domain.AuditRequest, err error) {
	r.s.read(func(d *state) { out, err = d.auditRequests.get(id, copyAuditRequest) })
	return
}

func (r *auditRequestRepo) List(_ context.Context, filter repository.AuditRequestFilter) (out []domain.AuditRequest, err error) {
	r.s.read(func(d *state) {
		out = d.auditRequests.list(func(a domain.AuditRequest) bool {
			if filter.OrganizationID != nil && a.OrganizationID != *filter.OrganizationID {
				return false
			}
			if filter.CertificationBodyID != nil && a.CertificationBodyID != *filter.CertificationBodyID {
				return false
			}
			if filter.Status != nil && a.Status != *filter.Status {
				return false
			}
			return true
		}, true, filter.Limit, filter.Offset, copyAuditRequest)
	})
	return
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, audit *domain.Audit) error {
	return r.s.write(func(d *state) error {
		now := r.s.now()
		audit.CreatedAt, audit.UpdatedAt = now, now
		d.audits.rows[audit.ID] = copyAudit(*audit)
		d.audits.seq[audit.ID] = d.seq()
		return nil
	})
}

func (r *auditRepo) Update(_ context.Context, audit *domain.Audit) error {
	return r.s.write(func(d *state) error {
		current, ok := d.audits.rows[audit.ID]
		if !ok {
			return repository.ErrNotFound
		}
		next := copyAudit(*audit)
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = r.s.now()
		audit.UpdatedAt = next.UpdatedAt
		d.audits.rows[audit.ID] = next
		return nil
	})
}

func (r *auditRepo) GetByID(_ context.Context, id string) (out *domain.Audit, err error) {
	r.s.read(func(d *state) { out, err = d.audits.get(id, copyAudit) })
	return
}

func (r *auditRepo) List(_ context.Context, filter repository.AuditFilter) (out []domain.Audit, err error) {
	r.s.read(func(d *state) {
		out = d.audits.list(func(a domain.Audit) bool {
			if filter.Status != nil && a.Status != *filter.Status {
				return false
			}
			if filter.OrganizationID != nil && a.OrganizationID != *filter.OrganizationID {
				return false
			}
			if filter.CertificationBodyID != nil && a.CertificationBodyID != *filter.CertificationBodyID {
				return false
			}
			if filter.ScheduledFrom != nil && a.ScheduledDate.Before(*filter.ScheduledFrom) {
				return false
			}
			if filter.ScheduledTo != nil && a.ScheduledDate.After(*filter.ScheduledTo) {
				return false
			}
			return true
		}, false, filter.Limit, filter.Offset, copyAudit)
	})
	return
}

type certificationRepo struct{ s *Store }

func (r *certificationRepo) Create(_ context.Context, cert *domain.Certification) error {
	return r.s.write(func(d *state) error {
		if d.certifications.exists(func(c domain.Certification) bool { return c.AuditID == cert.AuditID }) {
			return conflict("certifications_audit_id_key")
		}
		if d.certifications.exists(func(c domain.Certification) bool { return c.CertificateNumber == cert.CertificateNumber }) {
			return conflict("certifications_certificate_number_key")
		}
		now := r.s.now()
		cert.CreatedAt, cert.UpdatedAt = now, now
		d.certifications.rows[cert.ID] = *cert
		d.certifications.seq[cert.ID] = d.seq()
		return nil
	})
}

func (r *certificationRepo) Update(_ context.Context, cert *domain.Certification) error {
	return r.s.write(func(d *state) error {
		current, ok := d.certifications.rows[cert.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Status = cert.Status
		current.ArtifactRef = cert.ArtifactRef
		current.UpdatedAt = r.s.now()
		cert.UpdatedAt = current.UpdatedAt
		d.certifications.rows[cert.ID] = current
		return nil
	})
}

func (r *certificationRepo) GetByID(_ context.Context, id string) (out *domain.Certification, err error) {
	r.s.read(func(d *state) { out, err = d.certifications.get(id, same[domain.Certification]) })
	return
}

func (r *certificationRepo) GetByAuditID(_ context.Context, auditID string) (out *domain.Certification, err error) {
	r.s.read(func(d *state) {
		out, err = d.certifications.find(func(c domain.Certification) bool {
			return c.AuditID == auditID
		}, same[domain.Certification])
	})
	return
}

func (r *certificationRepo) List(_ context.Context, filter repository.CertificationFilter) (out []domain.Certification, err error) {
	r.s.read(func(d *state) {
		out = d.certifications.list(func(c domain.Certification) bool {
			if filter.OrganizationID != nil && c.OrganizationID != *filter.OrganizationID {
				return false
			}
			if filter.CertificationBodyID != nil && c.CertificationBodyID != *filter.CertificationBodyID {
				return false
			}
			if filter.Status != nil && c.Status != *filter.Status {
				return false
			}
			return true
		}, true, filter.Limit, filter.Offset, same[domain.Certification])
	})
	return
}

type revokedTokenRepo struct{ s *Store }

func (r *revokedTokenRepo) Create(_ context.Context, token *domain.RevokedToken) error {
	return r.s.write(func(d *state) error {
		if d.revokedTokens.exists(func(t domain.RevokedToken) bool { return t.JTI == token.JTI }) {
			return nil
		}
		token.RevokedAt = r.s.now()
		d.revokedTokens.rows[token.ID] = *token
		d.revokedTokens.seq[token.ID] = d.seq()
		return nil
	})
}

func (r *revokedTokenRepo) Exists(_ context.Context, jti string) (found bool, err error) {
	r.s.read(func(d *state) {
		found = d.revokedTokens.exists(func(t domain.RevokedToken) bool { return t.JTI == jti })
	})
	return
}

func (r *revokedTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var removed int64
	err := r.s.write(func(d *state) error {
		for id, t := range d.revokedTokens.rows {
			if t.ExpiresAt.Before(before) {
				delete(d.revokedTokens.rows, id)
				delete(d.revokedTokens.seq, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}
