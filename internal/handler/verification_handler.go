package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authkit/internal/middleware"
	"authkit/internal/service"
)

// VerificationHandler handles email verification and password recovery endpoints.
type VerificationHandler struct {
	verificationService service.VerificationService
}

// NewVerificationHandler creates a new verification handler.
func NewVerificationHandler(verificationService service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

// RequestEmailVerification godoc
// @Summary Send a verification email to the signed-in account
// @Tags verification
// @Produce json
// @Security CookieAuth
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /verify-email [post]
func (h *VerificationHandler) RequestEmailVerification(c echo.Context) error {
	account := middleware.CurrentAccount(c)

	if err := h.verificationService.RequestEmailVerification(c.Request().Context(), account.ID); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "verification email sent"})
}

// ConfirmEmailVerification godoc
// @Summary Redeem an email verification token
// @Tags verification
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} model.PublicAccount
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /verify-user/{token} [post]
func (h *VerificationHandler) ConfirmEmailVerification(c echo.Context) error {
	account, err := h.verificationService.ConfirmEmailVerification(c.Request().Context(), c.Param("token"))
	middleware.RecordAuthEvent("verify_email", err == nil)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, account)
}

// ForgotPassword godoc
// @Summary Request a password reset email
// @Description Responds the same way whether or not the email is registered.
// @Tags verification
// @Accept json
// @Produce json
// @Param request body service.ForgotPasswordInput true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forgot-password [post]
func (h *VerificationHandler) ForgotPassword(c echo.Context) error {
	var req service.ForgotPasswordInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(err)
	}

	if err := h.verificationService.RequestPasswordReset(c.Request().Context(), req); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "if an account exists for that email, a password reset link has been sent",
	})
}

// ResetPassword godoc
// @Summary Redeem a password reset token
// @Tags verification
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body service.ResetPasswordInput true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /reset-password/{token} [post]
func (h *VerificationHandler) ResetPassword(c echo.Context) error {
	var req service.ResetPasswordInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	err := h.verificationService.ConfirmPasswordReset(c.Request().Context(), c.Param("token"), req)
	middleware.RecordAuthEvent("reset_password", err == nil)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password reset successful, please login"})
}

// ChangePassword godoc
// @Summary Change the password of the signed-in account
// @Tags verification
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body service.ChangePasswordInput true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /change-password [patch]
func (h *VerificationHandler) ChangePassword(c echo.Context) error {
	var req service.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(err)
	}
	account := middleware.CurrentAccount(c)

	if err := h.verificationService.ChangePassword(c.Request().Context(), account.ID, req); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password changed successfully"})
}
