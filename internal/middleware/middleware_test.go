package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	sessions map[string]*domain.Session
	err      error
}

func (s *stubResolver) Authenticate(_ context.Context, token string) (*domain.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newRouter(resolver SessionResolver, roles ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := quietLogger()
	r := gin.New()
	group := r.Group("/", AuthMiddleware(resolver, logger))
	if len(roles) > 0 {
		group.Use(RequireRoles(logger, roles...))
	}
	group.GET("/whoami", func(c *gin.Context) {
		session, _ := CurrentSession(c)
		c.String(http.StatusOK, session.Username)
	})
	return r
}

func doGet(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func resolverWith(role domain.Role) *stubResolver {
	return &stubResolver{sessions: map[string]*domain.Session{
		"good-token": {Token: "good-token", UserID: "u1", Username: "alice", Role: role, ExpiresAt: time.Now().Add(time.Hour)},
	}}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		resolver   *stubResolver
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", resolverWith(domain.RoleSales), http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic abc", resolverWith(domain.RoleSales), http.StatusUnauthorized, "Invalid Authorization header format"},
		{"unknown token", "Bearer nope", resolverWith(domain.RoleSales), http.StatusUnauthorized, "Session expired"},
		{"store failure", "Bearer good-token", &stubResolver{err: errors.New("redis down")}, http.StatusInternalServerError, "Could not verify session"},
		{"valid token", "Bearer good-token", resolverWith(domain.RoleSales), http.StatusOK, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newRouter(tt.resolver), tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	w := doGet(newRouter(resolverWith(domain.RoleSales), domain.RoleAdmin, domain.RoleManager), "Bearer good-token")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doGet(newRouter(resolverWith(domain.RoleManager), domain.RoleAdmin, domain.RoleManager), "Bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	last := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, http.StatusOK, last.Data["status_code"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), last.Data["request_id"])

	req := httptest.NewRequest(http.MethodGet, "/bad", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)
	last = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, "req-42", last.Data["request_id"])
}
