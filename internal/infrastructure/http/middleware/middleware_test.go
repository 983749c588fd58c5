package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"

	"github.com/amirhosseinghanipour/authhub/internal/application/authz"
	"github.com/amirhosseinghanipour/authhub/internal/domain"
	domerrors "github.com/amirhosseinghanipour/authhub/internal/domain/errors"
)

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestCredentials_CookieWinsOverBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	r.Header.Set(APIKeyHeader, " ak_123 ")
	r.AddCookie(&http.Cookie{Name: OwnerCookie, Value: "from-cookie"})

	c := Credentials(r)
	assert.Equal(t, "ak_123", c.APIKey)
	assert.Equal(t, "from-cookie", c.OwnerToken)
	assert.Equal(t, "from-header", c.ProjectUserToken)
}

func TestCredentials_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, authz.Credentials{}, Credentials(r))
}

type stubGate struct {
	name string
	err  error
	ran  *[]string
	set  func(*authz.Request)
}

func (g stubGate) Name() string { return g.name }

func (g stubGate) Apply(_ context.Context, req *authz.Request) error {
	*g.ran = append(*g.ran, g.name)
	if g.set != nil {
		g.set(req)
	}
	return g.err
}

func TestGates_FirstFailureShortCircuits(t *testing.T) {
	var ran []string
	h := Gates(zerolog.Nop(),
		stubGate{name: "a", ran: &ran},
		stubGate{name: "b", ran: &ran, err: domerrors.Forbidden("nope")},
		stubGate{name: "c", ran: &ran},
	)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"a", "b"}, ran)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "nope", body["message"])
	assert.Equal(t, "forbidden", body["code"])
}

func TestGates_UnknownErrorIsInternal(t *testing.T) {
	var ran []string
	h := Gates(zerolog.Nop(), stubGate{name: "a", ran: &ran, err: assert.AnError})(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestGates_StackedGroupsShareRequest(t *testing.T) {
	var ran []string
	project := &domain.Project{Name: "p"}
	outer := Gates(zerolog.Nop(), stubGate{name: "resolve", ran: &ran, set: func(r *authz.Request) { r.Project = project }})
	inner := Gates(zerolog.Nop(), stubGate{name: "check", ran: &ran, set: func(r *authz.Request) {
		assert.Same(t, project, r.Project)
	}})

	var seen *domain.Project
	h := outer(inner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ProjectFromContext(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Same(t, project, seen)
	assert.Equal(t, []string{"resolve", "check"}, ran)
}

func limitedCall(h http.Handler) func(apiKey, ip string) int {
	return func(apiKey, ip string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = ip + ":1234"
		if apiKey != "" {
			r.Header.Set(APIKeyHeader, apiKey)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}
}

func TestProjectRateLimiter_MemoryStore(t *testing.T) {
	store, err := NewRateLimitStore(nil)
	require.NoError(t, err)
	do := limitedCall(NewProjectRateLimiter(store, limiter.Rate{Period: time.Minute, Limit: 2})(http.HandlerFunc(okHandler)))

	assert.Equal(t, http.StatusOK, do("", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("", "10.0.0.1"))
	// the API key is its own bucket regardless of IP
	assert.Equal(t, http.StatusOK, do("ak_a", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("", "10.0.0.2"))
}

func TestRateLimiter_IgnoresAPIKey(t *testing.T) {
	store, err := NewRateLimitStore(nil)
	require.NoError(t, err)
	do := limitedCall(NewRateLimiter(store, limiter.Rate{Period: time.Minute, Limit: 2})(http.HandlerFunc(okHandler)))

	assert.Equal(t, http.StatusOK, do("ak_1", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("ak_2", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("ak_3", "10.0.0.1"), "a new key does not reset the bucket")
	assert.Equal(t, http.StatusOK, do("ak_3", "10.0.0.2"))
}

func TestRateLimiter_RedisStoreIsShared(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRateLimitStore(client)
	require.NoError(t, err)
	rate := limiter.Rate{Period: 15 * time.Minute, Limit: 3}
	// two instances behind a load balancer
	a := NewProjectRateLimiter(store, rate)(http.HandlerFunc(okHandler))
	b := NewProjectRateLimiter(store, rate)(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 4)
	for i, h := range []http.Handler{a, b, a, b} {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.Header.Set(APIKeyHeader, "ak_shared")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
		if i == 3 {
			assert.JSONEq(t, `{"message":"Too many requests. Please try again later.","code":"rate_limited"}`, rec.Body.String())
		}
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://dash.test/"})(http.HandlerFunc(okHandler))

	r := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	r.Header.Set("Origin", "http://dash.test")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://dash.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Api-Key")

	r = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	r.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodGet, "/api/project-data", nil)
	r.Header.Set("Origin", "http://anything.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Disabled(t *testing.T) {
	h := CORS(nil)(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "http://dash.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecureHeaders(t *testing.T) {
	h := NewSecure(SecureOptions(false))(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodGet, "https://authhub.test/health", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}
