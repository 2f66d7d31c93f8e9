package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/catalog"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/service"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// StandardsHandler serves the standards catalog and the assistant built on it.
type StandardsHandler struct {
	standards *service.StandardsService
	chat      *service.ChatService
}

func NewStandardsHandler(standards *service.StandardsService, chat *service.ChatService) *StandardsHandler {
	return &StandardsHandler{standards: standards, chat: chat}
}

// Search handles GET /standards.
func (h *StandardsHandler) Search(c *fiber.Ctx) error {
	filter := catalog.Filter{
		Keyword:            c.Query("keyword"),
		Category:           c.Query("category"),
		SubCategory:        c.Query("subcategory"),
		Stage:              c.Query("stage"),
		TechnicalCommittee: c.Query("technical_committee"),
		IncludeRetired:     c.QueryBool("include_retired", false),
		Page:               c.QueryInt("page", 1),
		PageSize:           c.QueryInt("page_size", catalog.DefaultPageSize),
	}
	if raw := strings.TrimSpace(c.Query("ics")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			code, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return apperrors.NewBadRequest("ics must be a comma separated list of integers")
			}
			filter.ICS = append(filter.ICS, code)
		}
	}
	page, err := h.standards.Search(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, page, false)
}

// Get handles GET /standards/:id.
func (h *StandardsHandler) Get(c *fiber.Ctx) error {
	st, err := h.standards.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, st, false)
}

// Insert handles POST /standards.
func (h *StandardsHandler) Insert(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.StandardPayload
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	st, err := h.standards.Insert(c.UserContext(), userID, domain.Standard{
		Iso:                req.Iso,
		Category:           req.Category,
		SubCategory:        req.SubCategory,
		Description:        req.Description,
		PublicationDate:    req.PublicationDate,
		Status:             req.Status,
		Stage:              req.Stage,
		Edition:            req.Edition,
		NumberOfPages:      req.NumberOfPages,
		TechnicalCommittee: req.TechnicalCommittee,
		ICS:                req.ICS,
		URL:                req.URL,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, st, false)
}

// Retire handles DELETE /standards/:iso.
func (h *StandardsHandler) Retire(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	st, err := h.standards.Retire(c.UserContext(), userID, c.Params("iso"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, st, false)
}

// Chat handles POST /chat.
func (h *StandardsHandler) Chat(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	reply, err := h.chat.Ask(c.UserContext(), userID, service.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Iso:       req.Iso,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.ChatResponse{
		Response:  reply.Response,
		SessionID: reply.SessionID,
		Iso:       reply.Iso,
	}, false)
}
