package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	authmw "github.com/amirhosseinghanipour/authhub/internal/infrastructure/http/middleware"
)

// AuditLog logs auth events (project_id, user_id, IP).
func AuditLog(log zerolog.Logger, r *http.Request, event string, projectID, userID string, success bool, errMsg string) {
	ev := log.Info()
	if !success {
		ev = log.Warn()
	}
	ev.
		Str("event", event).
		Str("project_id", projectID).
		Str("user_id", userID).
		Str("ip", r.RemoteAddr).
		Str("request_id", middleware.GetReqID(r.Context())).
		Bool("success", success)
	if errMsg != "" {
		ev.Str("error", errMsg)
	}
	ev.Msg("auth_audit")
}

// audit logs the event and counts it. kind is "global" or "project".
func audit(log zerolog.Logger, r *http.Request, event, kind, projectID, userID string, err error) {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	AuditLog(log, r, event, projectID, userID, err == nil, errMsg)
	authmw.RecordAuthAttempt(event, kind, err == nil)
}
