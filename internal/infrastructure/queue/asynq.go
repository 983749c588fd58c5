package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
)

const TypeSendEmailVerification = "email:email_verification"

type TaskEnqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqEnqueuer(redisOpt asynq.RedisConnOpt, log zerolog.Logger) *TaskEnqueuer {
	return &TaskEnqueuer{client: asynq.NewClient(redisOpt), log: log}
}

func (q *TaskEnqueuer) Close() error {
	return q.client.Close()
}

// newVerificationTask encodes msg; the task expires with the token it carries.
func newVerificationTask(msg ports.VerificationEmail) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode verification email: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
	if !msg.ExpiresAt.IsZero() {
		opts = append(opts, asynq.Deadline(msg.ExpiresAt))
	}
	return asynq.NewTask(TypeSendEmailVerification, payload, opts...), nil
}

func (q *TaskEnqueuer) EnqueueSendEmailVerification(ctx context.Context, msg ports.VerificationEmail) error {
	task, err := newVerificationTask(msg)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.log.Warn().Err(err).Str("email", msg.Email).Str("kind", string(msg.Kind)).Msg("enqueue email verification failed")
		return err
	}
	return nil
}

var _ ports.TaskEnqueuer = (*TaskEnqueuer)(nil)
