package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/ports"
)

// InlineEnqueuer delivers verification email synchronously through the same
// log-only sender the worker uses. It stands in when Redis is not configured.
type InlineEnqueuer struct {
	sender *LogSender
}

func NewInlineEnqueuer(log zerolog.Logger) *InlineEnqueuer {
	return &InlineEnqueuer{sender: NewLogSender(log)}
}

func (q *InlineEnqueuer) EnqueueSendEmailVerification(ctx context.Context, msg ports.VerificationEmail) error {
	return q.sender.SendVerification(ctx, msg)
}

var _ ports.TaskEnqueuer = (*InlineEnqueuer)(nil)
