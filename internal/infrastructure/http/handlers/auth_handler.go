package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/auth"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
)

const (
	kindGlobal  = string(domain.AccountGlobal)
	kindProject = string(domain.AccountProject)

	msgPendingVerification = "Registration successful. Please check your email to verify your account."
	msgVerified            = "Email verified successfully. You can now log in."
	msgResent              = "A new verification email has been sent."
)

type registerBody struct {
	Name     string `json:"name" validate:"max=255"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type verifyCodeBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code" validate:"required,max=128"`
}

type resendBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// UserResponse is the public shape of a dashboard account.
type UserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

func userResponse(u *domain.GlobalUser) UserResponse {
	return UserResponse{
		ID:            u.ID.String(),
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.Verification.Verified,
	}
}

// AuthHandler handles /api/auth/* for dashboard accounts.
type AuthHandler struct {
	register     *auth.RegisterOwner
	login        *auth.LoginOwner
	verify       *auth.VerifyEmail
	resend       *auth.SendEmailVerification
	cookieSecure bool
	log          zerolog.Logger
}

func NewAuthHandler(register *auth.RegisterOwner, login *auth.LoginOwner, verify *auth.VerifyEmail, resend *auth.SendEmailVerification, cookieSecure bool, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		register:     register,
		login:        login,
		verify:       verify,
		resend:       resend,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.register.Execute(r.Context(), auth.RegisterOwnerInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		audit(h.log, r, "register", kindGlobal, "", "", err)
		writeDomainErr(h.log, w, err)
		return
	}
	audit(h.log, r, "register", kindGlobal, "", result.AccountID.String(), nil)
	writePendingVerification(h.log, w, result)
}

// Login handles POST /api/auth/login. The session is returned in the body and as an HttpOnly cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.login.Execute(r.Context(), auth.LoginInput{Email: body.Email, Password: body.Password})
	if err != nil {
		audit(h.log, r, "login", kindGlobal, "", "", err)
		writeLoginErr(h.log, w, err)
		return
	}
	audit(h.log, r, "login", kindGlobal, "", result.GlobalUser.ID.String(), nil)
	setSessionCookie(w, middleware.OwnerCookie, result.Token, result.ExpiresAt, h.cookieSecure)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": result.Token,
		"user":  userResponse(result.GlobalUser),
	})
}

// Logout handles POST /api/auth/logout. Sessions are stateless; only the cookie is cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, middleware.OwnerCookie, h.cookieSecure)
	if actor := middleware.ActorFromContext(r.Context()); actor != nil {
		AuditLog(h.log, r, "logout", "", actor.ID.String(), true, "")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil || actor.GlobalUser == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userResponse(actor.GlobalUser)})
}

// VerifyEmail handles GET /api/auth/verify-email/{token}.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	_, err := h.verify.Execute(r.Context(), auth.VerifyEmailInput{Token: chi.URLParam(r, "token")})
	audit(h.log, r, "verify_email", kindGlobal, "", "", err)
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgVerified})
}

// VerifyOTP handles POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	_, err := h.verify.Execute(r.Context(), auth.VerifyEmailInput{Email: body.Email, Token: body.Code})
	audit(h.log, r, "verify_otp", kindGlobal, "", "", err)
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgVerified})
}

// ResendOTP handles POST /api/auth/resend-otp.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var body resendBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.resend.Execute(r.Context(), auth.SendEmailVerificationInput{Email: body.Email})
	audit(h.log, r, "resend_verification", kindGlobal, "", "", err)
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": msgResent, "expiresAt": result.ExpiresAt})
}

// writePendingVerification answers a successful registration. The account exists
// even when the email could not be queued; the client can ask for a resend.
func writePendingVerification(log zerolog.Logger, w http.ResponseWriter, result *auth.RegisterResult) {
	resp := map[string]interface{}{
		"message":   msgPendingVerification,
		"user":      map[string]string{"id": result.AccountID.String(), "email": result.Email},
		"emailSent": result.EmailErr == nil,
	}
	if result.EmailErr != nil {
		log.Error().Err(result.EmailErr).Str("account_id", result.AccountID.String()).Msg("verification email not queued")
	}
	writeJSON(w, http.StatusCreated, resp)
}

// writeLoginErr flags an unverified account so the client can offer a resend.
func writeLoginErr(log zerolog.Logger, w http.ResponseWriter, err error) {
	if domerrors.KindOf(err) == domerrors.KindEmailNotVerified {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"message": "Please verify your email before logging in.",
			"code":    ErrCodeEmailNotVerified,
			"resend":  true,
		})
		return
	}
	writeDomainErr(log, w, err)
}

func setSessionCookie(w http.ResponseWriter, name, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
