package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/service"
)

// AuditsHandler exposes audit requests and audits.
type AuditsHandler struct {
	audits *service.AuditService
}

func NewAuditsHandler(audits *service.AuditService) *AuditsHandler {
	return &AuditsHandler{audits: audits}
}

// RequestAudit handles POST /audits/requests.
func (h *AuditsHandler) RequestAudit(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.AuditRequestPayload
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.audits.RequestAudit(c.UserContext(), managerID, service.AuditRequestInput{
		CertificationBodyID: req.CertificationBodyID,
		Name:                req.Name,
		StandardIDs:         req.StandardIDs,
		ScheduledDate:       req.ScheduledDate,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toAuditRequestResponse(res.Value), res.NotificationFailed)
}

// ListRequests handles GET /audits/requests?status=.
func (h *AuditsHandler) ListRequests(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	status, err := requestStatusQuery(c)
	if err != nil {
		return err
	}
	items, err := h.audits.ListAuditRequests(c.UserContext(), userID, status, page)
	if err != nil {
		return err
	}
	out := make([]dto.AuditRequestResponse, 0, len(items))
	for i := range items {
		out = append(out, toAuditRequestResponse(&items[i]))
	}
	return respond(c, http.StatusOK, out, false)
}

// DecideRequest handles POST /audits/requests/:id/action?decision=approve|reject.
func (h *AuditsHandler) DecideRequest(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	decision, err := service.ParseDecision(c.Query("decision"))
	if err != nil {
		return err
	}
	requestID, err := pathID(c, "audit request")
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return err
	}
	res, err := h.audits.DecideAuditRequest(c.UserContext(), managerID, requestID, decision, req.Comment)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAuditRequestResponse(res.Value), res.NotificationFailed)
}

// Create handles POST /audits.
func (h *AuditsHandler) Create(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.DirectAuditPayload
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.audits.CreateAuditDirect(c.UserContext(), managerID, service.DirectAuditInput{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		StandardIDs:    req.StandardIDs,
		ScheduledDate:  req.ScheduledDate,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toAuditResponse(res.Value), res.NotificationFailed)
}

// List handles GET /audits.
func (h *AuditsHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	from, err := parseDate(c.Query("start_date"))
	if err != nil {
		return err
	}
	to, err := parseEndDate(c.Query("end_date"))
	if err != nil {
		return err
	}
	orgID, err := idQuery(c, "organization_id")
	if err != nil {
		return err
	}
	cbID, err := idQuery(c, "certification_body_id")
	if err != nil {
		return err
	}
	items, err := h.audits.ListAudits(c.UserContext(), userID, service.AuditListFilter{
		Status:              optionalQuery(c, "status"),
		OrganizationID:      orgID,
		CertificationBodyID: cbID,
		From:                from,
		To:                  to,
		Page:                page,
	})
	if err != nil {
		return err
	}
	out := make([]dto.AuditResponse, 0, len(items))
	for i := range items {
		out = append(out, toAuditResponse(&items[i]))
	}
	return respond(c, http.StatusOK, out, false)
}

// Get handles GET /audits/:id.
func (h *AuditsHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	auditID, err := pathID(c, "audit")
	if err != nil {
		return err
	}
	audit, err := h.audits.GetAudit(c.UserContext(), userID, auditID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAuditResponse(audit), false)
}

// Update handles PUT /audits/:id.
func (h *AuditsHandler) Update(c *fiber.Ctx) error {
	managerID, err := currentUserID(c)
	if err != nil {
		return err
	}
	auditID, err := pathID(c, "audit")
	if err != nil {
		return err
	}
	var req dto.AuditUpdatePayload
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	input := service.AuditUpdateInput{
		Name:          req.Name,
		ScheduledDate: req.ScheduledDate,
		Status:        req.Status,
	}
	for _, item := range req.Checklist {
		input.Checklist = append(input.Checklist, service.ChecklistUpdate{
			StandardID:       item.StandardID,
			ComplianceStatus: item.ComplianceStatus,
		})
	}
	res, err := h.audits.UpdateAudit(c.UserContext(), managerID, auditID, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAuditResponse(res.Value), res.NotificationFailed)
}
