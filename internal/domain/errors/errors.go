package errors

import "errors"

// Kind classifies a domain error; handlers map it to an HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindEmailNotVerified
	KindInvalidOrExpiredToken
	KindAlreadyVerified
	KindTooManyRequests
	KindUnauthorized
	KindForbidden
	KindNotFound
)

// Error is a domain error with a client-safe message. errors.Is matches on Kind,
// so a specific error such as ErrUserExists also matches ErrConflict.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Validation, Unauthorized, Forbidden and TooManyRequests build errors with a specific message.
func Validation(message string) *Error      { return New(KindValidation, message) }
func Unauthorized(message string) *Error    { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func TooManyRequests(message string) *Error { return New(KindTooManyRequests, message) }

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrValidation            = New(KindValidation, "invalid request")
	ErrConflict              = New(KindConflict, "resource already exists")
	ErrUserExists            = New(KindConflict, "user already exists")
	ErrProjectUserExists     = New(KindConflict, "user already exists in this project")
	ErrInvalidCredentials    = New(KindInvalidCredentials, "invalid email or password")
	ErrEmailNotVerified      = New(KindEmailNotVerified, "email not verified")
	ErrInvalidOrExpiredToken = New(KindInvalidOrExpiredToken, "invalid or expired verification token")
	ErrAlreadyVerified       = New(KindAlreadyVerified, "email already verified")
	ErrTooManyRequests       = New(KindTooManyRequests, "too many requests")
	ErrUnauthorized          = New(KindUnauthorized, "unauthorized")
	ErrInvalidToken          = New(KindUnauthorized, "invalid or expired token")
	ErrForbidden             = New(KindForbidden, "forbidden")
	ErrNotFound              = New(KindNotFound, "not found")
	ErrUserNotFound          = New(KindNotFound, "user not found")
	ErrProjectNotFound       = New(KindNotFound, "project not found")
	ErrInternal              = New(KindInternal, "internal error")
)
