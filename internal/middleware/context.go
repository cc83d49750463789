package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"authkit/internal/model"
)

type contextKey string

const accountContextKey contextKey = "account"

// echo context keys.
const (
	sessionKey = "session"
	accountKey = "account"
)

// WithAccount injects the resolved account into the context.
func WithAccount(ctx context.Context, account *model.PublicAccount) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext returns the resolved account from the context, or nil.
func AccountFromContext(ctx context.Context) *model.PublicAccount {
	v := ctx.Value(accountContextKey)
	if v == nil {
		return nil
	}
	a, _ := v.(*model.PublicAccount)
	return a
}

// CurrentAccount returns the account resolved by RequireSession, or nil.
func CurrentAccount(c echo.Context) *model.PublicAccount {
	if a, ok := c.Get(accountKey).(*model.PublicAccount); ok {
		return a
	}
	return AccountFromContext(c.Request().Context())
}
