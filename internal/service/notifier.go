package service

import (
	"context"

	"authkit/internal/model"
)

// Notifier delivers a plaintext action token to the account owner. It is the
// only channel a plaintext token ever leaves the service through.
type Notifier interface {
	Send(ctx context.Context, email string, kind model.TokenPurpose, token string) error
}
