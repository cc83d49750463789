package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"authkit/internal/errors"
	"authkit/internal/middleware"
	"authkit/internal/service"
)

// UserHandler handles profile and account administration endpoints.
type UserHandler struct {
	accountService service.AccountService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(accountService service.AccountService) *UserHandler {
	return &UserHandler{accountService: accountService}
}

// GetProfile godoc
// @Summary Get the signed-in account
// @Tags users
// @Produce json
// @Security CookieAuth
// @Success 200 {object} model.PublicAccount
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /user [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	account := middleware.CurrentAccount(c)

	profile, err := h.accountService.GetProfile(c.Request().Context(), account.ID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update name, bio or photo of the signed-in account
// @Tags users
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body service.UpdateProfileInput true "Profile fields"
// @Success 200 {object} model.PublicAccount
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /user [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req service.UpdateProfileInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(err)
	}
	account := middleware.CurrentAccount(c)

	profile, err := h.accountService.UpdateProfile(c.Request().Context(), account.ID, req)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ListUsers godoc
// @Summary List all accounts
// @Tags users
// @Produce json
// @Security CookieAuth
// @Success 200 {array} model.PublicAccount
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	accounts, err := h.accountService.ListAccounts(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, accounts)
}

// DeleteUser godoc
// @Summary Delete an account
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Param id path string true "Account ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid account ID",
			Code:  "INVALID_UUID",
		})
	}

	if err := h.accountService.DeleteAccount(c.Request().Context(), id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "user deleted successfully"})
}
