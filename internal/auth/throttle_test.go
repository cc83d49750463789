package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkit/internal/model"
)

func TestActionThrottle_DisabledWindow(t *testing.T) {
	throttle := NewActionThrottle(nil, 0)
	id := uuid.New()

	for i := 0; i < 3; i++ {
		ok, err := throttle.Allow(context.Background(), id, model.PurposeVerifyEmail)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.NoError(t, throttle.Release(context.Background(), id, model.PurposeVerifyEmail))
}

func TestActionThrottle_FailsOpenWithoutRedis(t *testing.T) {
	throttle := NewActionThrottle(nil, time.Minute)

	ok, err := throttle.Allow(context.Background(), uuid.New(), model.PurposeResetPassword)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThrottleKey_SeparatesPurposes(t *testing.T) {
	id := uuid.New()
	assert.NotEqual(t,
		throttleKey(id, model.PurposeVerifyEmail),
		throttleKey(id, model.PurposeResetPassword),
	)
}
