package handlers

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/service"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// NotificationWarning accompanies responses whose change was saved while an
// email could not be delivered.
const NotificationWarning = "the change was saved but a notification could not be delivered"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON decodes the body into out and validates it.
func bindJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validateStruct(out)
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty.
func bindOptionalJSON(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return validateStruct(out)
	}
	return bindJSON(c, out)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return apperrors.NewValidationError("validation failed", details)
}

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func currentUserID(c *fiber.Ctx) (string, error) {
	principal, err := currentPrincipal(c)
	if err != nil {
		return "", err
	}
	return principal.User.ID, nil
}

// respond wraps data in the standard envelope.
func respond(c *fiber.Ctx, status int, data any, notificationFailed bool) error {
	body := fiber.Map{"data": data}
	if notificationFailed {
		body["warning"] = NotificationWarning
	}
	return c.Status(status).JSON(body)
}

func parsePage(c *fiber.Ctx) (service.Page, error) {
	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	if limit < 0 || offset < 0 {
		return service.Page{}, apperrors.NewBadRequest("limit and offset must not be negative")
	}
	return service.Page{Limit: limit, Offset: offset}, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid date " + raw)
	}
	return &t, nil
}

// parseEndDate is parseDate for inclusive upper bounds: a calendar date
// covers the whole day.
func parseEndDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return &end, nil
	}
	return parseDate(raw)
}

// pathID reads the :id parameter. Ids are UUIDs, so anything else cannot
// name an existing resource.
func pathID(c *fiber.Ctx, resource string) (string, error) {
	id := c.Params("id")
	if uuid.Validate(id) != nil {
		return "", apperrors.NewNotFound(resource, nil)
	}
	return id, nil
}

func idQuery(c *fiber.Ctx, key string) (*string, error) {
	raw := optionalQuery(c, key)
	if raw != nil && uuid.Validate(*raw) != nil {
		return nil, apperrors.NewBadRequest(key + " must be a uuid")
	}
	return raw, nil
}

func requestStatusQuery(c *fiber.Ctx) (*domain.RequestStatus, error) {
	raw := optionalQuery(c, "status")
	if raw == nil {
		return nil, nil
	}
	status := domain.RequestStatus(*raw)
	if !status.Valid() {
		return nil, apperrors.NewBadRequest("invalid status")
	}
	return &status, nil
}
