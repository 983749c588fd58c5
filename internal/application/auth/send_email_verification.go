package auth

import (
	"context"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/application/verification"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// SendEmailVerificationInput names the account asking for a new token.
type SendEmailVerificationInput struct {
	ProjectID domain.ProjectID
	Email     string
}

// SendEmailVerificationResult carries the new token's expiry.
type SendEmailVerificationResult struct {
	ExpiresAt time.Time
}

// SendEmailVerification replaces the outstanding token and enqueues the email,
// subject to the resend cooldown.
type SendEmailVerification struct {
	engine *verification.Engine
}

// NewSendEmailVerification builds the use case.
func NewSendEmailVerification(engine *verification.Engine) *SendEmailVerification {
	return &SendEmailVerification{engine: engine}
}

// Execute returns NotFound, AlreadyVerified or a *verification.CooldownError when no email is sent.
func (uc *SendEmailVerification) Execute(ctx context.Context, input SendEmailVerificationInput) (*SendEmailVerificationResult, error) {
	issued, err := uc.engine.Resend(ctx, verification.ResendInput{ProjectID: input.ProjectID, Email: input.Email})
	if err != nil {
		return nil, err
	}
	return &SendEmailVerificationResult{ExpiresAt: issued.Issue.ExpiresAt}, nil
}
