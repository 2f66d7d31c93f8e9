package handlers

import (
	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/domain"
)

func toUserResponse(user *domain.User, affiliationName string) dto.UserResponse {
	orgID, cbID := user.Affiliation.Columns()
	return dto.UserResponse{
		ID:                  user.ID,
		Email:               user.Email,
		FullName:            user.FullName,
		Role:                string(user.Role),
		IsConfirmed:         user.IsConfirmed,
		OrganizationID:      orgID,
		CertificationBodyID: cbID,
		AffiliationName:     affiliationName,
		CreatedAt:           user.CreatedAt,
	}
}

func toTokenResponse(token auth.IssuedToken) dto.TokenResponse {
	return dto.TokenResponse{Token: token.Token, ExpiresAt: token.ExpiresAt}
}

func toCreationRequestResponse(req *domain.CreationRequest) dto.CreationRequestResponse {
	return dto.CreationRequestResponse{
		ID:           req.ID,
		Kind:         string(req.Kind),
		GuestID:      req.GuestID,
		Name:         req.Name,
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Description:  req.Description,
		Status:       string(req.Status),
		AdminComment: req.AdminComment,
		EntityID:     req.EntityID,
		CreatedAt:    req.CreatedAt,
		UpdatedAt:    req.UpdatedAt,
	}
}

func toCreationRequestList(reqs []domain.CreationRequest) []dto.CreationRequestResponse {
	out := make([]dto.CreationRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, toCreationRequestResponse(&reqs[i]))
	}
	return out
}

func toInvitationResponse(inv *domain.Invitation) dto.InvitationResponse {
	return dto.InvitationResponse{
		ID:          inv.ID,
		Email:       inv.Email,
		Role:        string(inv.Role),
		ScopeKind:   string(inv.Scope.Kind()),
		ScopeID:     inv.Scope.ID(),
		InvitedByID: inv.InvitedByID,
		Status:      string(inv.Status),
		IsUsed:      inv.IsUsed,
		ExpiresAt:   inv.ExpiresAt,
		RespondedAt: inv.RespondedAt,
		CreatedAt:   inv.CreatedAt,
	}
}

func toOrganizationResponse(org *domain.Organization) dto.EntityResponse {
	return dto.EntityResponse{
		ID:           org.ID,
		Name:         org.Name,
		Address:      org.Address,
		ContactEmail: org.ContactEmail,
		ContactPhone: org.ContactPhone,
		CreatedAt:    org.CreatedAt,
	}
}

func toCertificationBodyResponse(cb *domain.CertificationBody) dto.EntityResponse {
	return dto.EntityResponse{
		ID:           cb.ID,
		Name:         cb.Name,
		Address:      cb.Address,
		ContactEmail: cb.ContactEmail,
		ContactPhone: cb.ContactPhone,
		CreatedAt:    cb.CreatedAt,
	}
}

func toAuditResponse(a *domain.Audit) dto.AuditResponse {
	checklist := a.Checklist
	if checklist == nil {
		checklist = []domain.ChecklistItem{}
	}
	return dto.AuditResponse{
		ID:                  a.ID,
		Name:                a.Name,
		OrganizationID:      a.OrganizationID,
		CertificationBodyID: a.CertificationBodyID,
		ManagerID:           a.ManagerID,
		AuditRequestID:      a.AuditRequestID,
		ScheduledDate:       a.ScheduledDate,
		Status:              string(a.Status),
		Checklist:           checklist,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func toAuditRequestResponse(r *domain.AuditRequest) dto.AuditRequestResponse {
	return dto.AuditRequestResponse{
		ID:                  r.ID,
		Name:                r.Name,
		OrganizationID:      r.OrganizationID,
		CertificationBodyID: r.CertificationBodyID,
		RequestedByID:       r.RequestedByID,
		StandardIDs:         r.StandardIDs,
		ScheduledDate:       r.ScheduledDate,
		Status:              string(r.Status),
		DecidedByID:         r.DecidedByID,
		Comment:             r.Comment,
		AuditID:             r.AuditID,
		CreatedAt:           r.CreatedAt,
	}
}

func toCertificationResponse(cert *domain.Certification) dto.CertificationResponse {
	resp := dto.CertificationResponse{
		ID:                  cert.ID,
		CertificateNumber:   cert.CertificateNumber,
		AuditID:             cert.AuditID,
		OrganizationID:      cert.OrganizationID,
		CertificationBodyID: cert.CertificationBodyID,
		IssuerID:            cert.IssuerID,
		IssuedDate:          cert.IssuedDate,
		Status:              string(cert.Status),
		Details:             cert.Details,
		CreatedAt:           cert.CreatedAt,
	}
	if cert.Status == domain.CertificationIssued {
		resp.DownloadURL = "/certification/download/" + cert.ID
	}
	return resp
}
