package middleware

import (
	"context"
	"errors"
	"formbuilder-service/service/rate_limiter"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserIDFromContext(r.Context())))
	})
}

func TestIdentity_ReadsHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/forms", nil)
	req.Header.Set(HeaderUserID, " user-42 ")
	w := httptest.NewRecorder()

	Identity(echoUserHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", w.Body.String())
}

func TestIdentity_ForwardedHeaderFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/forms", nil)
	req.Header.Set(HeaderForwardedID, "gateway-user")
	w := httptest.NewRecorder()

	Identity(echoUserHandler()).ServeHTTP(w, req)

	assert.Equal(t, "gateway-user", w.Body.String())
}

func TestRequireUser_MissingIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/forms", nil)
	w := httptest.NewRecorder()

	Identity(RequireUser(echoUserHandler())).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "缺少用户标识")
}

func TestRequireUser_WithIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/forms", nil)
	req = req.WithContext(WithUserID(req.Context(), "owner"))
	w := httptest.NewRecorder()

	RequireUser(echoUserHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", w.Body.String())
}

func TestPublicFormAccess_LimitsPerClient(t *testing.T) {
	limiter := rate_limiter.NewMemoryRateLimiter(rate_limiter.RateLimitRule{TimeWindow: 60, MaxRequests: 1})
	handler := PublicFormAccess(limiter)(echoUserHandler())

	first := httptest.NewRequest(http.MethodGet, "/form/feedbacks", nil)
	first.RemoteAddr = "192.168.1.10:51000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRequest(http.MethodGet, "/form/feedbacks", nil)
	second.RemoteAddr = "192.168.1.10:51001"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	other := httptest.NewRequest(http.MethodGet, "/form/feedbacks", nil)
	other.RemoteAddr = "192.168.1.11:51000"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*rate_limiter.RateLimitResult, error) {
	return nil, errors.New("redis unavailable")
}

func TestPublicFormAccess_FailsOpen(t *testing.T) {
	handler := PublicFormAccess(failingLimiter{})(echoUserHandler())
	req := httptest.NewRequest(http.MethodGet, "/form/feedbacks", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:1234"
	assert.Equal(t, "10.1.1.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "10.2.2.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}
