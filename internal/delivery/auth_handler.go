package delivery

import (
	"net/http"
	"time"

	"pos_service/internal/domain"
	"pos_service/internal/middleware"
	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	auth  usecase.AuthUseCase
	users usecase.UserUseCase
	log   *logrus.Logger
}

func NewAuthHandler(auth usecase.AuthUseCase, users usecase.UserUseCase, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		auth:  auth,
		users: users,
		log:   logger,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// RegisterRoutes mounts login on public and the session routes on authed.
func (h *AuthHandler) RegisterRoutes(public, authed gin.IRouter) {
	public.POST("/auth/login", h.Login)
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)
}

func (h *AuthHandler) Login(c *gin.Context) {
	handlerLogger := h.log.WithField("handler", "Login")

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlerLogger.Warnf("Failed to bind login request: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	session, user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failWith(c, "Login failed", err)
		return
	}

	handlerLogger.Infof("Authentication successful for user %s", user.Username)
	SuccessResponse(c, http.StatusOK, "Login successful", LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.CurrentToken(c)); err != nil {
		failWith(c, "Logout failed", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	user, err := h.users.GetUserByID(c.Request.Context(), session.UserID)
	if err != nil {
		failWith(c, "Failed to retrieve profile", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", user)
}
