package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
)

// LogSender is the outbound email collaborator: it writes the message to the log.
// Swap it for an SMTP or provider client to send real mail.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendVerification(_ context.Context, msg ports.VerificationEmail) error {
	ev := s.log.Info().
		Str("kind", string(msg.Kind)).
		Str("project_id", msg.ProjectID).
		Str("email", msg.Email).
		Time("expires_at", msg.ExpiresAt)
	if msg.VerifyURL != "" {
		ev = ev.Str("verify_url", msg.VerifyURL)
	} else {
		ev = ev.Str("code", msg.Secret)
	}
	ev.Msg("email verification (log only; configure SMTP for real email)")
	return nil
}

// Worker runs Asynq task handlers.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	sender *LogSender
	log    zerolog.Logger
}

// NewWorker creates an Asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisConnOpt, log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.InfoLevel,
	})
	w := &Worker{srv: srv, mux: asynq.NewServeMux(), sender: NewLogSender(log), log: log}
	w.mux.HandleFunc(TypeSendEmailVerification, w.handleSendEmailVerification)
	return w
}

func (w *Worker) handleSendEmailVerification(ctx context.Context, t *asynq.Task) error {
	var msg ports.VerificationEmail
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		w.log.Error().Err(err).Msg("email verification task payload invalid")
		// A malformed payload will not get better on retry.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.sender.SendVerification(ctx, msg)
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
