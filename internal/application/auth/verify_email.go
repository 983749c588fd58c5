package auth

import (
	"context"

	"github.com/amirhosseinghanipour/authhub/internal/application/verification"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// VerifyEmailInput is the token from the verification link, or an emailed code with its address.
type VerifyEmailInput struct {
	ProjectID domain.ProjectID
	Email     string
	Token     string
}

// VerifyEmailResult names the account that became verified.
type VerifyEmailResult struct {
	Account *domain.VerificationRecord
}

// VerifyEmail redeems a verification token for one account kind.
type VerifyEmail struct {
	engine *verification.Engine
}

// NewVerifyEmail builds the use case.
func NewVerifyEmail(engine *verification.Engine) *VerifyEmail {
	return &VerifyEmail{engine: engine}
}

// Execute validates the token and marks the account's email as verified.
func (uc *VerifyEmail) Execute(ctx context.Context, input VerifyEmailInput) (*VerifyEmailResult, error) {
	rec, err := uc.engine.Consume(ctx, verification.ConsumeInput{
		ProjectID: input.ProjectID,
		Email:     input.Email,
		Secret:    input.Token,
	})
	if err != nil {
		return nil, err
	}
	return &VerifyEmailResult{Account: rec}, nil
}
