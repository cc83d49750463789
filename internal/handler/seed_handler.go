package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authkit/internal/service"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	accountService service.AccountService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(accountService service.AccountService) *SeedHandler {
	return &SeedHandler{accountService: accountService}
}

// SeedAccountsResponse represents the seed response.
type SeedAccountsResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// SeedAccounts godoc
// @Summary Seed privileged accounts
// @Description Creates missing accounts verified and updates name and role of existing ones.
// @Tags admin
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body []service.SeedAccount true "Accounts to seed"
// @Success 200 {object} SeedAccountsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/seed [post]
func (h *SeedHandler) SeedAccounts(c echo.Context) error {
	var accounts []service.SeedAccount
	if err := (&echo.DefaultBinder{}).BindBody(c, &accounts); err != nil {
		return invalidBody()
	}

	count, err := h.accountService.SeedAccounts(c.Request().Context(), accounts)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, SeedAccountsResponse{
		Message: "accounts seeded successfully",
		Count:   count,
	})
}
