package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/service"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// EntityHandler serves the creation-request and invitation endpoints of one
// entity kind. The organization and certification body routes share it.
type EntityHandler struct {
	kind        domain.EntityKind
	requests    *service.CreationRequestService
	invitations *service.InvitationService
	directory   *service.DirectoryService
}

func NewEntityHandler(kind domain.EntityKind, requests *service.CreationRequestService, invitations *service.InvitationService, directory *service.DirectoryService) *EntityHandler {
	return &EntityHandler{kind: kind, requests: requests, invitations: invitations, directory: directory}
}

// SubmitRequest handles POST /<kind>/requests.
func (h *EntityHandler) SubmitRequest(c *fiber.Ctx) error {
	guestID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.CreationRequestPayload
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.requests.Submit(c.UserContext(), guestID, h.kind, service.CreationRequestInput{
		Name:         req.Name,
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Description:  req.Description,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toCreationRequestResponse(res.Value), res.NotificationFailed)
}

// MyRequests handles GET /<kind>/requests/mine.
func (h *EntityHandler) MyRequests(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	items, err := h.requests.ListMine(c.UserContext(), userID, h.kind, page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toCreationRequestList(items), false)
}

// Invite handles POST /<kind>/invite.
func (h *EntityHandler) Invite(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.InviteRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.invitations.Issue(c.UserContext(), managerID, h.kind, service.InviteInput{Email: req.Email, Role: req.Role})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toInvitationResponse(res.Value), res.NotificationFailed)
}

// ListInvitations handles GET /<kind>/invitations?status=.
func (h *EntityHandler) ListInvitations(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	var status *domain.InvitationStatus
	if raw := optionalQuery(c, "status"); raw != nil {
		s := domain.InvitationStatus(*raw)
		if !s.Valid() {
			return apperrors.NewBadRequest("invalid status")
		}
		status = &s
	}
	items, err := h.invitations.List(c.UserContext(), managerID, h.kind, status, page)
	if err != nil {
		return err
	}
	out := make([]dto.InvitationResponse, 0, len(items))
	for i := range items {
		out = append(out, toInvitationResponse(&items[i]))
	}
	return respond(c, http.StatusOK, out, false)
}

// Accept handles POST /<kind>/invitations/accept.
func (h *EntityHandler) Accept(c *fiber.Ctx) error {
	var req dto.AcceptInvitationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return h.accept(c, req.Token)
}

// AcceptFromLink handles GET /<kind>/invitations/accept?token=.
func (h *EntityHandler) AcceptFromLink(c *fiber.Ctx) error {
	req := dto.AcceptInvitationRequest{Token: c.Query("token")}
	if err := validateStruct(&req); err != nil {
		return err
	}
	return h.accept(c, req.Token)
}

func (h *EntityHandler) accept(c *fiber.Ctx, token string) error {
	guestID, err := currentUserID(c)
	if err != nil {
		return err
	}
	res, err := h.invitations.Accept(c.UserContext(), guestID, h.kind, token)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(res.Value, ""), res.NotificationFailed)
}

// Revoke handles DELETE /<kind>/invitations/revoke.
func (h *EntityHandler) Revoke(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.RevokeInvitationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.invitations.Revoke(c.UserContext(), managerID, h.kind, req.InvitationID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toInvitationResponse(res.Value), res.NotificationFailed)
}

// Get handles GET /<kind>/:id.
func (h *EntityHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, string(h.kind))
	if err != nil {
		return err
	}
	if h.kind == domain.EntityCertificationBody {
		cb, err := h.directory.GetCertificationBody(c.UserContext(), userID, id)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, toCertificationBodyResponse(cb), false)
	}
	org, err := h.directory.GetOrganization(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toOrganizationResponse(org), false)
}

// List handles GET /organizations and GET /certification_bodies.
func (h *EntityHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	var out []dto.EntityResponse
	if h.kind == domain.EntityCertificationBody {
		items, err := h.directory.ListCertificationBodies(c.UserContext(), userID, page)
		if err != nil {
			return err
		}
		out = make([]dto.EntityResponse, 0, len(items))
		for i := range items {
			out = append(out, toCertificationBodyResponse(&items[i]))
		}
	} else {
		items, err := h.directory.ListOrganizations(c.UserContext(), userID, page)
		if err != nil {
			return err
		}
		out = make([]dto.EntityResponse, 0, len(items))
		for i := range items {
			out = append(out, toOrganizationResponse(&items[i]))
		}
	}
	return respond(c, http.StatusOK, out, false)
}
