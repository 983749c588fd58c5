package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/amirhosseinghanipour/authhub/internal/application/authz"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// Gates runs the route's gates in order before the handler. The first failing
// gate answers the request; later gates and the handler never run. The
// resolved project and actor are available through AuthzFromContext.
func Gates(log zerolog.Logger, gates ...authz.Gate) func(next http.Handler) http.Handler {
	pipeline := authz.Pipeline(gates)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := AuthzFromContext(r.Context())
			if req == nil {
				req = &authz.Request{Credentials: Credentials(r)}
			}
			if err := pipeline.Run(r.Context(), req); err != nil {
				writeGateErr(log, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthz(r.Context(), req)))
		})
	}
}

func writeGateErr(log zerolog.Logger, w http.ResponseWriter, err error) {
	code, errCode := http.StatusInternalServerError, "internal_error"
	message := "internal error"
	switch domerrors.KindOf(err) {
	case domerrors.KindUnauthorized:
		code, errCode = http.StatusUnauthorized, "unauthorized"
	case domerrors.KindForbidden:
		code, errCode = http.StatusForbidden, "forbidden"
	case domerrors.KindNotFound:
		code, errCode = http.StatusNotFound, "not_found"
	default:
		log.Error().Err(err).Msg("authorization gate failed")
	}
	if code != http.StatusInternalServerError {
		var de *domerrors.Error
		if errors.As(err, &de) {
			message = de.Message
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message, "code": errCode})
}
