package delivery

import (
	"net/http"

	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CategoryHandler struct {
	useCase usecase.CategoryUseCase
	log     *logrus.Logger
}

func NewCategoryHandler(uc usecase.CategoryUseCase, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{
		useCase: uc,
		log:     logger,
	}
}

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *CategoryHandler) RegisterRoutes(read, write gin.IRouter) {
	read.GET("/categories", h.ListCategories)
	read.GET("/categories/:id", h.GetCategoryByID)

	write.POST("/categories", h.CreateCategory)
	write.PUT("/categories/:id", h.UpdateCategory)
	write.DELETE("/categories/:id", h.DeleteCategory)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	category, err := h.useCase.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		failWith(c, "Failed to create category", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Category created successfully", category)
}

func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	category, err := h.useCase.GetCategoryByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, "Failed to retrieve category", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category retrieved successfully", category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	category, err := h.useCase.UpdateCategory(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		failWith(c, "Failed to update category", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category updated successfully", category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.useCase.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		failWith(c, "Failed to delete category", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category deleted successfully", nil)
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.useCase.ListCategories(c.Request.Context())
	if err != nil {
		h.log.Errorf("Failed to list categories: %v", err)
		failWith(c, "Failed to retrieve categories", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Categories retrieved successfully", categories)
}
