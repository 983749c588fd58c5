package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthTimeout = 3 * time.Second

type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// HealthHandler serves /health. Each configured backend is pinged; any failure
// turns the answer into 503 so load balancers stop routing to the instance.
type HealthHandler struct {
	checks []healthCheck
	log    zerolog.Logger
}

// NewHealthHandler creates a health handler. db is nil for the in-memory store and redis is optional.
func NewHealthHandler(db *sql.DB, redisClient redis.UniversalClient, log zerolog.Logger) *HealthHandler {
	h := &HealthHandler{log: log}
	if db != nil {
		h.checks = append(h.checks, healthCheck{name: "database", ping: db.PingContext})
	}
	if redisClient != nil {
		h.checks = append(h.checks, healthCheck{name: "redis", ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	return h
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Message string            `json:"message,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		if err := c.ping(ctx); err != nil {
			// the reason stays in the log; probes only see up or down
			h.log.Warn().Err(err).Str("check", c.name).Msg("health check failed")
			resp.Checks[c.name] = "down"
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[c.name] = "ok"
	}

	if resp.Status != "ok" {
		resp.Message = "one or more checks failed"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
