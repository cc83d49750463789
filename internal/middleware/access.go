package middleware

import (
	"context"
	"errors"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"authkit/internal/auth"
	apperrors "authkit/internal/errors"
	"authkit/internal/model"
)

// SessionVerifier resolves a session token to an account id.
type SessionVerifier interface {
	VerifySession(token string) (uuid.UUID, error)
}

// AccountFinder loads an account by id.
type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

// Access gates protected routes on a valid session and on account role.
type Access struct {
	sessions SessionVerifier
	accounts AccountFinder
}

// NewAccess creates the access control middleware set.
func NewAccess(sessions SessionVerifier, accounts AccountFinder) *Access {
	return &Access{sessions: sessions, accounts: accounts}
}

func httpError(err error) error {
	he := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
}

// RequireSession verifies the session cookie and loads its account. A missing,
// invalid or expired token, or an account that no longer exists, yields 401.
func (a *Access) RequireSession() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + auth.SessionCookieName,
		ContextKey:  sessionKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return a.sessions.VerifySession(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return httpError(apperrors.ErrUnauthenticated)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(a.loadAccount(next))
	}
}

func (a *Access) loadAccount(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := c.Get(sessionKey).(uuid.UUID)
		if !ok {
			return httpError(apperrors.ErrUnauthenticated)
		}

		account, err := a.accounts.FindByID(c.Request().Context(), accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpError(apperrors.ErrUnauthenticated)
			}
			c.Logger().Errorf("load session account: %v", err)
			return httpError(err)
		}

		public := account.Public()
		c.Set(accountKey, &public)
		c.SetRequest(c.Request().WithContext(WithAccount(c.Request().Context(), &public)))
		return next(c)
	}
}

// RequireRole allows the request only if the resolved account holds one of roles.
// It must run after RequireSession.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := CurrentAccount(c)
			if account == nil {
				return httpError(apperrors.ErrUnauthenticated)
			}
			if !model.RoleIn(account.Role, roles...) {
				return httpError(apperrors.ErrForbidden)
			}
			return next(c)
		}
	}
}
