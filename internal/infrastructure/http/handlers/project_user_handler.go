package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/auth"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
)

// ProjectUserResponse is the public shape of a project end-user. The password hash never leaves the server.
type ProjectUserResponse struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func projectUserResponse(u *domain.ProjectUser) ProjectUserResponse {
	return ProjectUserResponse{
		ID:            u.ID.String(),
		ProjectID:     u.ProjectID.String(),
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.Verification.Verified,
		CreatedAt:     u.CreatedAt,
	}
}

// ProjectUserHandler handles /api/project-users/*. The project comes from the x-api-key gate.
type ProjectUserHandler struct {
	register     *auth.RegisterProjectUser
	login        *auth.LoginProjectUser
	verify       *auth.VerifyEmail
	resend       *auth.SendEmailVerification
	cookieSecure bool
	log          zerolog.Logger
}

func NewProjectUserHandler(register *auth.RegisterProjectUser, login *auth.LoginProjectUser, verify *auth.VerifyEmail, resend *auth.SendEmailVerification, cookieSecure bool, log zerolog.Logger) *ProjectUserHandler {
	return &ProjectUserHandler{
		register:     register,
		login:        login,
		verify:       verify,
		resend:       resend,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

func (h *ProjectUserHandler) project(w http.ResponseWriter, r *http.Request) *domain.Project {
	p := middleware.ProjectFromContext(r.Context())
	if p == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "API key missing")
	}
	return p
}

// Register handles POST /api/project-users/register.
func (h *ProjectUserHandler) Register(w http.ResponseWriter, r *http.Request) {
	project := h.project(w, r)
	if project == nil {
		return
	}
	var body registerBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.register.Execute(r.Context(), auth.RegisterProjectUserInput{
		ProjectID: project.ID,
		Name:      body.Name,
		Email:     body.Email,
		Password:  body.Password,
	})
	if err != nil {
		audit(h.log, r, "register", kindProject, project.ID.String(), "", err)
		writeDomainErr(h.log, w, err)
		return
	}
	audit(h.log, r, "register", kindProject, project.ID.String(), result.AccountID.String(), nil)
	writePendingVerification(h.log, w, result)
}

// Login handles POST /api/project-users/login.
func (h *ProjectUserHandler) Login(w http.ResponseWriter, r *http.Request) {
	project := h.project(w, r)
	if project == nil {
		return
	}
	var body loginBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.login.Execute(r.Context(), auth.LoginInput{
		ProjectID: project.ID,
		Email:     body.Email,
		Password:  body.Password,
	})
	if err != nil {
		audit(h.log, r, "login", kindProject, project.ID.String(), "", err)
		writeLoginErr(h.log, w, err)
		return
	}
	audit(h.log, r, "login", kindProject, project.ID.String(), result.ProjectUser.ID.String(), nil)
	setSessionCookie(w, middleware.ProjectUserCookie, result.Token, result.ExpiresAt, h.cookieSecure)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": result.Token,
		"user":  projectUserResponse(result.ProjectUser),
	})
}

// VerifyEmail handles GET /api/project-users/verify-email/{token}. The link carries no API key.
func (h *ProjectUserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	result, err := h.verify.Execute(r.Context(), auth.VerifyEmailInput{Token: chi.URLParam(r, "token")})
	if err != nil {
		audit(h.log, r, "verify_email", kindProject, "", "", err)
		writeDomainErr(h.log, w, err)
		return
	}
	audit(h.log, r, "verify_email", kindProject, result.Account.ProjectID.String(), result.Account.AccountID.String(), nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": msgVerified})
}

// VerifyOTP handles POST /api/project-users/verify-otp.
func (h *ProjectUserHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	project := h.project(w, r)
	if project == nil {
		return
	}
	var body verifyCodeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	_, err := h.verify.Execute(r.Context(), auth.VerifyEmailInput{
		ProjectID: project.ID,
		Email:     body.Email,
		Token:     body.Code,
	})
	audit(h.log, r, "verify_otp", kindProject, project.ID.String(), "", err)
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgVerified})
}

// ResendOTP handles POST /api/project-users/resend-otp.
func (h *ProjectUserHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	project := h.project(w, r)
	if project == nil {
		return
	}
	var body resendBody
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.resend.Execute(r.Context(), auth.SendEmailVerificationInput{
		ProjectID: project.ID,
		Email:     body.Email,
	})
	audit(h.log, r, "resend_verification", kindProject, project.ID.String(), "", err)
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": msgResent, "expiresAt": result.ExpiresAt})
}

// Profile handles GET /api/project-users/profile.
func (h *ProjectUserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil || actor.ProjectUser == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"email": actor.ProjectUser.Email,
		"role":  string(actor.ProjectUser.Role),
	})
}
