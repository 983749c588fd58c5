package ports

import (
	"context"
	"time"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
)

// VerificationEmail is what the email collaborator needs to reach the account owner.
// Secret is the link token or the numeric code; VerifyURL is empty in code mode.
type VerificationEmail struct {
	Kind      domain.AccountKind `json:"kind"`
	ProjectID string             `json:"project_id,omitempty"`
	Email     string             `json:"email"`
	Name      string             `json:"name,omitempty"`
	Secret    string             `json:"secret"`
	VerifyURL string             `json:"verify_url,omitempty"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// TaskEnqueuer hands outbound email to the async worker.
type TaskEnqueuer interface {
	EnqueueSendEmailVerification(ctx context.Context, msg VerificationEmail) error
}
