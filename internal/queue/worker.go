package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Worker runs asynq task handlers that deliver action token links.
type Worker struct {
	srv       *asynq.Server
	mux       *asynq.ServeMux
	clientURL string
	log       zerolog.Logger
}

// NewWorker creates an asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, clientURL string, log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.WarnLevel,
	})
	w := &Worker{srv: srv, mux: asynq.NewServeMux(), clientURL: clientURL, log: log}
	w.mux.HandleFunc(TypeSendEmailVerification, w.handleSendActionToken)
	w.mux.HandleFunc(TypeSendPasswordReset, w.handleSendActionToken)
	return w
}

func (w *Worker) handleSendActionToken(ctx context.Context, t *asynq.Task) error {
	var p actionTokenPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		w.log.Error().Err(err).Str("type", t.Type()).Msg("notification task payload invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if expected, err := TaskType(p.Kind); err != nil || expected != t.Type() {
		w.log.Error().Str("type", t.Type()).Str("kind", string(p.Kind)).Msg("notification kind does not match task type")
		return fmt.Errorf("kind %q on %s: %w", p.Kind, t.Type(), asynq.SkipRetry)
	}

	// Log only; an SMTP or provider client plugs in here.
	w.log.Info().
		Str("email", p.Email).
		Str("kind", string(p.Kind)).
		Str("link_url", Link(w.clientURL, p.Kind, p.Token)).
		Msg("notification email (log only; configure SMTP for real email)")
	return nil
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
