package delivery

import (
	"net/http"

	"pos_service/internal/domain"
	"pos_service/internal/middleware"
	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	useCase usecase.UserUseCase
	log     *logrus.Logger
}

func NewUserHandler(uc usecase.UserUseCase, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		useCase: uc,
		log:     logger,
	}
}

type createUserRequest struct {
	Username string      `json:"username" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     domain.Role `json:"role"`
}

type updateUserRequest struct {
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
}

func (h *UserHandler) RegisterRoutes(router gin.IRouter) {
	users := router.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUserByID)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, err := h.useCase.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		failWith(c, "Failed to create user", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "User created successfully", user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.useCase.ListUsers(c.Request.Context())
	if err != nil {
		failWith(c, "Failed to retrieve users", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.useCase.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, "Failed to retrieve user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Password == nil && req.Role == nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: no fields provided for update")
		return
	}
	user, err := h.useCase.UpdateUser(c.Request.Context(), c.Param("id"), req.Password, req.Role)
	if err != nil {
		failWith(c, "Failed to update user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User updated successfully", user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	var actorID string
	if session, ok := middleware.CurrentSession(c); ok {
		actorID = session.UserID
	}
	if err := h.useCase.DeleteUser(c.Request.Context(), actorID, c.Param("id")); err != nil {
		failWith(c, "Failed to delete user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User deleted successfully", nil)
}
