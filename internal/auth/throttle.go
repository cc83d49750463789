package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authkit/internal/cache"
	"authkit/internal/model"
)

const actionThrottleKeyPrefix = "throttle:action_token:"

// ThrottleInterface limits how often an action token may be issued per account and purpose.
type ThrottleInterface interface {
	Allow(ctx context.Context, accountID uuid.UUID, purpose model.TokenPurpose) (bool, error)
	Release(ctx context.Context, accountID uuid.UUID, purpose model.TokenPurpose) error
}

// ActionThrottle keeps a short-lived marker in Redis after each issuance.
type ActionThrottle struct {
	cache  *cache.Client
	window time.Duration
}

// Ensure ActionThrottle implements ThrottleInterface
var _ ThrottleInterface = (*ActionThrottle)(nil)

// NewActionThrottle creates a throttle with the given cooldown window. A zero
// window disables throttling.
func NewActionThrottle(cache *cache.Client, window time.Duration) *ActionThrottle {
	return &ActionThrottle{cache: cache, window: window}
}

func throttleKey(accountID uuid.UUID, purpose model.TokenPurpose) string {
	return actionThrottleKeyPrefix + string(purpose) + ":" + accountID.String()
}

// Allow records an issuance and reports whether it falls outside the cooldown window.
func (t *ActionThrottle) Allow(ctx context.Context, accountID uuid.UUID, purpose model.TokenPurpose) (bool, error) {
	if t == nil || t.window <= 0 {
		return true, nil
	}
	return t.cache.SetNX(ctx, throttleKey(accountID, purpose), []byte("1"), t.window)
}

// Release drops the marker so the owner can retry immediately, e.g. after a failed delivery.
func (t *ActionThrottle) Release(ctx context.Context, accountID uuid.UUID, purpose model.TokenPurpose) error {
	if t == nil || t.window <= 0 {
		return nil
	}
	return t.cache.Delete(ctx, throttleKey(accountID, purpose))
}
