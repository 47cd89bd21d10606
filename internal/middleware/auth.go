package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pos_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	sessionKey = "session"
	tokenKey   = "rawToken"
)

// SessionResolver resolves a bearer token into a live session.
type SessionResolver interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"Status": "Fail", "Message": message})
}

func AuthMiddleware(auth SessionResolver, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Middleware: Authorization header is missing")
			fail(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Middleware: Invalid Authorization header format")
			fail(c, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		rawToken := parts[1]
		if rawToken == "" {
			log.Warn("Middleware: Bearer token is empty")
			fail(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		log.Debugf("Middleware: Extracted raw token: %s...", rawToken[:min(8, len(rawToken))])

		session, err := auth.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				log.Warn("Middleware: Session not found or expired")
				fail(c, http.StatusUnauthorized, "Session expired, please sign in again")
				return
			}
			log.Errorf("Middleware: Failed to resolve session: %v", err)
			fail(c, http.StatusInternalServerError, "Could not verify session")
			return
		}

		c.Set(tokenKey, rawToken)
		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
// It must run after AuthMiddleware.
func RequireRoles(log *logrus.Logger, roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			fail(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			log.Warnf("Middleware: User %s with role %s denied %s %s", session.Username, session.Role, c.Request.Method, c.FullPath())
			fail(c, http.StatusForbidden, domain.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) (*domain.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*domain.Session)
	return session, ok && session != nil
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
