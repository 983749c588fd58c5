package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

// errorStatus maps a domain error kind to its HTTP status and error code.
var errorStatus = map[domerrors.Kind]struct {
	status int
	code   string
}{
	domerrors.KindValidation:            {http.StatusBadRequest, ErrCodeInvalidRequest},
	domerrors.KindConflict:              {http.StatusConflict, ErrCodeConflict},
	domerrors.KindInvalidCredentials:    {http.StatusUnauthorized, ErrCodeInvalidCredentials},
	domerrors.KindEmailNotVerified:      {http.StatusForbidden, ErrCodeEmailNotVerified},
	domerrors.KindInvalidOrExpiredToken: {http.StatusBadRequest, ErrCodeInvalidToken},
	domerrors.KindAlreadyVerified:       {http.StatusBadRequest, ErrCodeAlreadyVerified},
	domerrors.KindTooManyRequests:       {http.StatusTooManyRequests, ErrCodeTooManyRequests},
	domerrors.KindUnauthorized:          {http.StatusUnauthorized, ErrCodeUnauthorized},
	domerrors.KindForbidden:             {http.StatusForbidden, ErrCodeForbidden},
	domerrors.KindNotFound:              {http.StatusNotFound, ErrCodeNotFound},
}

type retryAfter interface {
	error
	RetryAfterSeconds() int
}

// writeErr sends JSON { "message": message, "code": errCode }.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	writeJSON(w, code, map[string]string{"message": message, "code": errCode})
}

// writeDomainErr converts err to its status. Errors without a domain kind are
// logged and answered with a bare 500 so storage details never leave the server.
func writeDomainErr(log zerolog.Logger, w http.ResponseWriter, err error) {
	m, ok := errorStatus[domerrors.KindOf(err)]
	if !ok {
		log.Error().Err(err).Msg("request failed")
		writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}
	var ra retryAfter
	if errors.As(err, &ra) {
		w.Header().Set("Retry-After", strconv.Itoa(ra.RetryAfterSeconds()))
		writeErr(w, m.status, m.code, ra.Error())
		return
	}
	var de *domerrors.Error
	errors.As(err, &de)
	writeErr(w, m.status, m.code, de.Message)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
