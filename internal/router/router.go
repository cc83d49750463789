package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"authkit/internal/config"
	"authkit/internal/handler"
	"authkit/internal/middleware"
	"authkit/internal/model"
	"authkit/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log zerolog.Logger,
	access *middleware.Access,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	verificationHandler *handler.VerificationHandler,
	seedHandler *handler.SeedHandler,
) error {
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())
	e.Use(middleware.NewSecure(middleware.SecureOptions(cfg.Development)))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     corsOrigins(cfg),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	// Add validator
	e.Validator = &CustomValidator{validator: service.NewValidator()}

	limit, err := middleware.NewIPRateLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", middleware.MetricsHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")

	// Public routes
	api.POST("/register", authHandler.Register, limit)
	api.POST("/login", authHandler.Login, limit)
	api.GET("/logout", authHandler.Logout)
	api.GET("/login-status", authHandler.LoginStatus)
	api.POST("/verify-user/:token", verificationHandler.ConfirmEmailVerification, limit)
	api.POST("/forgot-password", verificationHandler.ForgotPassword, limit)
	api.POST("/reset-password/:token", verificationHandler.ResetPassword, limit)

	// Secured routes (require a session cookie)
	secured := api.Group("", access.RequireSession())
	secured.GET("/user", userHandler.GetProfile)
	secured.PATCH("/user", userHandler.UpdateProfile)
	secured.POST("/verify-email", verificationHandler.RequestEmailVerification, limit)
	secured.PATCH("/change-password", verificationHandler.ChangePassword, limit)
	secured.GET("/users", userHandler.ListUsers, middleware.RequireRole(model.RoleCreator, model.RoleAdmin))

	admin := secured.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.DELETE("/users/:id", userHandler.DeleteUser)
	admin.POST("/seed", seedHandler.SeedAccounts)

	return nil
}

func corsOrigins(cfg *config.Config) []string {
	if len(cfg.CORSOrigins) > 0 {
		return cfg.CORSOrigins
	}
	return []string{cfg.ClientURL}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return service.ValidateInput(cv.validator, i)
}
