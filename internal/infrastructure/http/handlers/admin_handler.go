package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/admin"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
)

// AdminHandler handles /api/admin/*: user management inside the project named by x-api-key.
type AdminHandler struct {
	listUsers  *admin.ListUsers
	updateRole *admin.UpdateRole
	deleteUser *admin.DeleteUser
	log        zerolog.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(listUsers *admin.ListUsers, updateRole *admin.UpdateRole, deleteUser *admin.DeleteUser, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{listUsers: listUsers, updateRole: updateRole, deleteUser: deleteUser, log: log}
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := middleware.ProjectFromContext(r.Context())
	if p == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "API key missing")
		return
	}
	users, err := h.listUsers.Execute(r.Context(), p.ID)
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	out := make([]ProjectUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, projectUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateRole handles PATCH /api/admin/users/{userId}/role. Body: { "role": "user"|"admin" }.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	req := middleware.AuthzFromContext(r.Context())
	if req == nil || req.Project == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "API key missing")
		return
	}
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	var body struct {
		Role string `json:"role" validate:"required,oneof=user admin"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	user, err := h.updateRole.Execute(r.Context(), admin.UpdateRoleInput{
		ProjectID: req.Project.ID,
		UserID:    userID,
		Role:      body.Role,
	})
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	AuditLog(h.log, r, "admin.update_role", req.Project.ID.String(), userID.String(), true, "")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Role updated",
		"user":    projectUserResponse(user),
	})
}

// DeleteUser handles DELETE /api/admin/users/{userId}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	req := middleware.AuthzFromContext(r.Context())
	if req == nil || req.Project == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "API key missing")
		return
	}
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	if err := h.deleteUser.Execute(r.Context(), req.Project.ID, userID); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	AuditLog(h.log, r, "admin.delete_user", req.Project.ID.String(), userID.String(), true, "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (domain.ProjectUserID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid user id")
		return domain.ProjectUserID{}, false
	}
	return domain.NewProjectUserID(id), true
}
