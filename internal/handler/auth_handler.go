package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authkit/internal/middleware"
	"authkit/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginStatusResponse reports whether the request carries a valid session.
type LoginStatusResponse struct {
	LoggedIn bool `json:"loggedIn"`
}

// Register godoc
// @Summary Register a new account
// @Description Creates an unverified account and sets the session cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration data"
// @Success 201 {object} model.PublicAccount
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(err)
	}

	session, err := h.authService.Register(c.Request().Context(), req)
	middleware.RecordAuthEvent("register", err == nil)
	if err != nil {
		return respondError(err)
	}

	h.authService.StartSession(c.Response(), session)
	return c.JSON(http.StatusCreated, session.Account)
}

// Login godoc
// @Summary Login with email and password
// @Description Sets the session cookie on success. No cookie is set on failure.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login credentials"
// @Success 200 {object} model.PublicAccount
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(err)
	}

	session, err := h.authService.Login(c.Request().Context(), req)
	middleware.RecordAuthEvent("login", err == nil)
	if err != nil {
		return respondError(err)
	}

	h.authService.StartSession(c.Response(), session)
	return c.JSON(http.StatusOK, session.Account)
}

// Logout godoc
// @Summary Logout
// @Description Clears the session cookie. Always succeeds.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.authService.Logout(c.Response())
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// LoginStatus godoc
// @Summary Report session status
// @Tags auth
// @Produce json
// @Success 200 {object} LoginStatusResponse
// @Router /login-status [get]
func (h *AuthHandler) LoginStatus(c echo.Context) error {
	_, ok := h.authService.CurrentSession(c.Request())
	return c.JSON(http.StatusOK, LoginStatusResponse{LoggedIn: ok})
}
