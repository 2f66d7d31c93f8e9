package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/service"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// AdminHandler serves the platform administrator's endpoints.
type AdminHandler struct {
	requests  *service.CreationRequestService
	directory *service.DirectoryService
}

func NewAdminHandler(requests *service.CreationRequestService, directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{requests: requests, directory: directory}
}

// ListUsers handles GET /admin/users?role=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	var role *domain.Role
	if raw := optionalQuery(c, "role"); raw != nil {
		parsed, err := domain.ParseRole(*raw)
		if err != nil {
			return apperrors.NewBadRequest("invalid role")
		}
		role = &parsed
	}
	entries, err := h.directory.ListUsers(c.UserContext(), adminID, role, page)
	if err != nil {
		return err
	}
	out := make([]dto.UserResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toUserResponse(&entries[i].User, entries[i].AffiliationName))
	}
	return respond(c, http.StatusOK, out, false)
}

// ListCreationRequests handles GET /admin/creation-requests?kind=&status=.
func (h *AdminHandler) ListCreationRequests(c *fiber.Ctx) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	var kind *domain.EntityKind
	if raw := optionalQuery(c, "kind"); raw != nil {
		parsed, err := domain.ParseEntityKind(*raw)
		if err != nil {
			return apperrors.NewBadRequest("kind must be organization or certification_body")
		}
		kind = &parsed
	}
	status, err := requestStatusQuery(c)
	if err != nil {
		return err
	}
	items, err := h.requests.List(c.UserContext(), adminID, kind, status, page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toCreationRequestList(items), false)
}

// Approve handles POST /admin/creation-requests/:id/approve.
func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.requests.Approve)
}

// Reject handles POST /admin/creation-requests/:id/reject.
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.requests.Reject)
}

type creationDecision func(ctx context.Context, adminID, requestID, comment string) (service.Result[*domain.CreationRequest], error)

func (h *AdminHandler) decide(c *fiber.Ctx, fn creationDecision) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	requestID, err := pathID(c, "creation request")
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return err
	}
	res, err := fn(c.UserContext(), adminID, requestID, req.Comment)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toCreationRequestResponse(res.Value), res.NotificationFailed)
}
