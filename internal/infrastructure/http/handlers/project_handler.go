package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/project"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	"github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
)

// ProjectResponse is a project as its owner sees it. The API key is only
// present right after creation; afterwards only its display prefix is known.
type ProjectResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKey       string    `json:"apiKey,omitempty"`
	APIKeyPrefix string    `json:"apiKeyPrefix"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"createdAt"`
}

func projectResponse(p *domain.Project, apiKey string) ProjectResponse {
	return ProjectResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		APIKey:       apiKey,
		APIKeyPrefix: p.APIKeyPrefix,
		Owner:        p.Owner.UserID().String(),
		CreatedAt:    p.CreatedAt,
	}
}

// ProjectHandler handles /api/projects/*, /api/rotate-key and /api/project-data.
type ProjectHandler struct {
	create *project.CreateProject
	list   *project.ListOwnedProjects
	rotate *project.RotateProjectKey
	log    zerolog.Logger
}

func NewProjectHandler(create *project.CreateProject, list *project.ListOwnedProjects, rotate *project.RotateProjectKey, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{create: create, list: list, rotate: rotate, log: log}
}

// Create handles POST /api/projects/create. Returns the plaintext key once.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	var body struct {
		Name string `json:"name" validate:"required,max=255"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	result, err := h.create.Execute(r.Context(), project.CreateProjectInput{
		Name:    body.Name,
		OwnerID: domain.NewUserID(actor.ID),
	})
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	AuditLog(h.log, r, "project.create", result.Project.ID.String(), actor.ID.String(), true, "")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"project": projectResponse(result.Project, result.APIKey),
	})
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	projects, err := h.list.Execute(r.Context(), domain.NewUserID(actor.ID))
	if err != nil {
		writeDomainErr(h.log, w, err)
		return
	}
	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResponse(p, ""))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": out})
}

// RotateKey handles POST /api/rotate-key. The old key stops working immediately.
func (h *ProjectHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	req := middleware.AuthzFromContext(r.Context())
	if req == nil || req.Project == nil || req.Actor == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	result, err := h.rotate.Execute(r.Context(), project.RotateProjectKeyInput{ProjectID: req.Project.ID})
	if err != nil {
		AuditLog(h.log, r, "project.rotate_key", req.Project.ID.String(), req.Actor.ID.String(), false, err.Error())
		writeDomainErr(h.log, w, err)
		return
	}
	AuditLog(h.log, r, "project.rotate_key", req.Project.ID.String(), req.Actor.ID.String(), true, "")
	writeJSON(w, http.StatusOK, map[string]string{"newApiKey": result.APIKey})
}

// ProjectData handles GET /api/project-data: the project behind the API key and its owner's email.
func (h *ProjectHandler) ProjectData(w http.ResponseWriter, r *http.Request) {
	p := middleware.ProjectFromContext(r.Context())
	if p == nil {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "API key missing")
		return
	}
	var ownerEmail string
	if p.Owner.Profile != nil {
		ownerEmail = p.Owner.Profile.Email
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"projectName": p.Name,
		"ownerEmail":  ownerEmail,
	})
}
