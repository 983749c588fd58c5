// Package postgres implements the repositories on PostgreSQL through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/amirhosseinghanipour/authhub/internal/domain"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/persistence/db"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const verificationColumns = `email_verified, verification_token_hash, verification_expires_at, verification_sent_at`

// verificationRow scans the verification columns shared by both user tables.
type verificationRow struct {
	verified bool
	hash     sql.NullString
	expires  sql.NullTime
	sent     sql.NullTime
}

func (v *verificationRow) dest() []any {
	return []any{&v.verified, &v.hash, &v.expires, &v.sent}
}

func (v *verificationRow) domain() domain.EmailVerification {
	out := domain.EmailVerification{Verified: v.verified, TokenHash: v.hash.String}
	if v.expires.Valid {
		t := v.expires.Time
		out.ExpiresAt = &t
	}
	if v.sent.Valid {
		t := v.sent.Time
		out.LastSentAt = &t
	}
	return out
}

func nullableVerification(v domain.EmailVerification) (sql.NullString, sql.NullTime, sql.NullTime) {
	hash := sql.NullString{String: v.TokenHash, Valid: v.TokenHash != ""}
	var expires, sent sql.NullTime
	if v.ExpiresAt != nil {
		expires = sql.NullTime{Time: *v.ExpiresAt, Valid: true}
	}
	if v.LastSentAt != nil {
		sent = sql.NullTime{Time: *v.LastSentAt, Valid: true}
	}
	return hash, expires, sent
}

// The resend write only lands when the account is unverified and no unexpired
// token was sent after the cooldown cutoff; concurrent resends race on this row.
const issueVerificationSQL = `UPDATE %s
SET verification_token_hash = $2, verification_expires_at = $3, verification_sent_at = $4, updated_at = $4
WHERE id = $1 AND NOT email_verified
  AND NOT (verification_token_hash IS NOT NULL
       AND verification_expires_at IS NOT NULL AND verification_expires_at > $4
       AND verification_sent_at IS NOT NULL AND verification_sent_at > $5)`

const consumeVerificationSQL = `UPDATE %s
SET email_verified = TRUE, verification_token_hash = NULL, verification_expires_at = NULL, updated_at = $3
WHERE id = $1 AND NOT email_verified AND verification_token_hash = $2 AND verification_expires_at > $3`

const revokeVerificationSQL = `UPDATE %s
SET verification_token_hash = NULL, verification_expires_at = NULL
WHERE id = $1 AND NOT email_verified AND verification_token_hash = $2`

func issueVerification(ctx context.Context, q db.DBTX, table string, accountID uuid.UUID, issue domain.VerificationIssue, cooldownCutoff time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, fmt.Sprintf(issueVerificationSQL, table),
		accountID, issue.TokenHash, issue.ExpiresAt, issue.SentAt, cooldownCutoff)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func consumeVerification(ctx context.Context, q db.DBTX, table string, accountID uuid.UUID, tokenHash string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, fmt.Sprintf(consumeVerificationSQL, table), accountID, tokenHash, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func revokeVerification(ctx context.Context, q db.DBTX, table string, accountID uuid.UUID, tokenHash string) (bool, error) {
	res, err := q.ExecContext(ctx, fmt.Sprintf(revokeVerificationSQL, table), accountID, tokenHash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
