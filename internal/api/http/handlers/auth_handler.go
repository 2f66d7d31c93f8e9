package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/certification-service/internal/api/dto"
	"github.com/spec-kit/certification-service/internal/service"
)

// AuthHandler exposes account endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toUserResponse(res.Value, ""), res.NotificationFailed)
}

// RegisterWithInvitation handles POST /auth/register-invitation.
func (h *AuthHandler) RegisterWithInvitation(c *fiber.Ctx) error {
	var req dto.InvitationRegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.auth.RegisterWithInvitation(c.UserContext(), service.InvitationRegisterInput{
		Token:    req.Token,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toSessionResponse(res.Value), res.NotificationFailed)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toSessionResponse(session), false)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	token, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"access_token": toTokenResponse(token)}, false)
}

// Logout handles POST /auth/logout. The access token in use is revoked, and
// the refresh token too when one is supplied.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.LogoutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), principal.Claims, req.RefreshToken); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ConfirmEmail handles GET /auth/confirm/:token.
func (h *AuthHandler) ConfirmEmail(c *fiber.Ctx) error {
	user, err := h.auth.ConfirmEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(user, ""), false)
}

// RequestPasswordReset handles POST /auth/password-reset-request. It answers
// the same way whether or not the email is known.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, fiber.Map{"status": "reset email sent if the account exists"}, res.NotificationFailed)
}

// ResetPassword handles POST /auth/password-reset.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirm
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"status": "password updated"}, false)
}

// Profile handles GET /user/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	profile, err := h.auth.Profile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toUserResponse(profile.User, profile.AffiliationName), false)
}

func toSessionResponse(s *service.Session) dto.SessionResponse {
	return dto.SessionResponse{
		User:         toUserResponse(s.User, ""),
		AccessToken:  toTokenResponse(s.Access),
		RefreshToken: toTokenResponse(s.Refresh),
	}
}
