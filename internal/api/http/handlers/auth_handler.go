package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/turklawai/auth-service/internal/api/dto"
	"github.com/turklawai/auth-service/internal/auth"
	"github.com/turklawai/auth-service/internal/service"
	"github.com/turklawai/auth-service/pkg/util"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth  *service.AuthService
	quota *service.QuotaService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, quotaService *service.QuotaService) *AuthHandler {
	return &AuthHandler{auth: authService, quota: quotaService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return util.NewValidationError("email and password required", nil)
	}

	session, err := h.auth.Register(c.UserContext(), req.Email, req.Password, req.FullName)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Success:   true,
		Message:   "registration successful",
		User:      &session.User,
		Token:     session.Token,
		ExpiresAt: &session.ExpiresAt,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return util.NewValidationError("email and password required", nil)
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		// Unknown accounts answer 401 here, not 404.
		if de := util.ToDomainError(err); de.Code == util.CodeNotFound {
			return util.NewUnauthorized("user not found")
		}
		return err
	}

	return c.JSON(dto.AuthResponse{
		Success:   true,
		Message:   "login successful",
		User:      &session.User,
		Token:     session.Token,
		ExpiresAt: &session.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Tokens are stateless; the client drops
// the token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	_ = h.auth.Logout(c.UserContext(), "")
	return c.JSON(fiber.Map{
		"success": true,
		"message": "logout successful - remove token from client",
	})
}

// CurrentUser handles GET /auth/user. The auth middleware already
// re-fetched the account, so the summary here is fresh.
func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	summary := user.Summary()
	return c.JSON(dto.UserResponse{
		Success: true,
		Message: "user profile retrieved",
		User:    &summary,
	})
}

// Usage handles GET /auth/usage.
func (h *AuthHandler) Usage(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	usage, err := h.quota.Remaining(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "usage": usage})
}

// ConsumeQuota handles POST /auth/usage/consume, the hook API gateways call
// to charge one request against the account.
func (h *AuthHandler) ConsumeQuota(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	usage, err := h.quota.Consume(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "usage": usage})
}

// RequestPasswordReset handles POST /auth/password/reset/request.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return util.NewValidationError("email required", nil)
	}

	// The reset token travels via the notification path, never the response,
	// and unknown emails get the same answer as known ones.
	if _, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		if de := util.ToDomainError(err); de.Code != util.CodeNotFound {
			return err
		}
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "reset email sent if the account exists",
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return util.NewValidationError("token and new password required", nil)
	}

	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "password reset"})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return util.NewValidationError("current and new password required", nil)
	}

	if err := h.auth.ChangePassword(c.UserContext(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "password changed"})
}
