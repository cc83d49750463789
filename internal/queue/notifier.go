package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"authkit/internal/model"
)

const (
	TypeSendEmailVerification = "email:email_verification"
	TypeSendPasswordReset     = "email:password_reset"
)

// actionTokenPayload is the JSON body of a notification task.
type actionTokenPayload struct {
	Email string             `json:"email"`
	Kind  model.TokenPurpose `json:"kind"`
	Token string             `json:"token"`
}

// TaskType returns the asynq task type for an action token purpose.
func TaskType(kind model.TokenPurpose) (string, error) {
	switch kind {
	case model.PurposeVerifyEmail:
		return TypeSendEmailVerification, nil
	case model.PurposeResetPassword:
		return TypeSendPasswordReset, nil
	}
	return "", fmt.Errorf("unknown notification kind %q", kind)
}

// Link builds the client URL an action token is redeemed at.
func Link(clientURL string, kind model.TokenPurpose, token string) string {
	base := strings.TrimRight(clientURL, "/")
	if kind == model.PurposeResetPassword {
		return base + "/reset-password/" + token
	}
	return base + "/verify-email/" + token
}

// AsynqNotifier hands action tokens to the asynq queue for delivery.
type AsynqNotifier struct {
	client *asynq.Client
	log    zerolog.Logger
}

// NewAsynqNotifier creates a notifier backed by the given Redis connection.
func NewAsynqNotifier(redisOpt asynq.RedisClientOpt, log zerolog.Logger) *AsynqNotifier {
	return &AsynqNotifier{client: asynq.NewClient(redisOpt), log: log}
}

// Close releases the asynq client.
func (n *AsynqNotifier) Close() error {
	return n.client.Close()
}

// Send enqueues a delivery task for the token.
func (n *AsynqNotifier) Send(ctx context.Context, email string, kind model.TokenPurpose, token string) error {
	taskType, err := TaskType(kind)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(actionTokenPayload{Email: email, Kind: kind, Token: token})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	task := asynq.NewTask(taskType, payload, asynq.MaxRetry(5))
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		n.log.Warn().Err(err).Str("email", email).Str("kind", string(kind)).Msg("enqueue notification failed")
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// LogNotifier writes links to the log instead of delivering them. Used when
// no Redis is configured.
type LogNotifier struct {
	clientURL string
	log       zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(clientURL string, log zerolog.Logger) *LogNotifier {
	return &LogNotifier{clientURL: clientURL, log: log}
}

// Send logs the link for the token.
func (n *LogNotifier) Send(_ context.Context, email string, kind model.TokenPurpose, token string) error {
	if _, err := TaskType(kind); err != nil {
		return err
	}
	n.log.Info().
		Str("email", email).
		Str("kind", string(kind)).
		Str("link_url", Link(n.clientURL, kind, token)).
		Msg("notification (log only; no queue configured)")
	return nil
}
