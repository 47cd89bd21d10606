package delivery

import (
	"net/http"

	"pos_service/internal/domain"
	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	useCase usecase.ProductUseCase
	log     *logrus.Logger
}

func NewProductHandler(uc usecase.ProductUseCase, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		useCase: uc,
		log:     logger,
	}
}

// RegisterRoutes mounts reads on read and mutations on write.
func (h *ProductHandler) RegisterRoutes(read, write gin.IRouter) {
	read.GET("/products", h.ListProducts)
	read.GET("/products/low-stock", h.ListLowStock)
	read.GET("/products/:id", h.GetProductByID)

	write.POST("/products", h.CreateProduct)
	write.PATCH("/products/:id", h.UpdateProduct)
	write.DELETE("/products/:id", h.DeleteProduct)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		h.log.Warnf("Failed to bind JSON for create product: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	createdProduct, err := h.useCase.CreateProduct(c.Request.Context(), &product)
	if err != nil {
		h.log.Warnf("Failed to create product '%s': %v", product.Name, err)
		failWith(c, "Failed to create product", err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "Product created successfully", createdProduct)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id := c.Param("id")
	product, err := h.useCase.GetProductByID(c.Request.Context(), id)
	if err != nil {
		failWith(c, "Failed to retrieve product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.log.Warnf("Failed to bind JSON for update product ID %s: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: no fields provided for update")
		return
	}

	updatedProduct, err := h.useCase.UpdateProduct(c.Request.Context(), id, updates)
	if err != nil {
		h.log.Warnf("Failed to update product ID %s: %v", id, err)
		failWith(c, "Failed to update product", err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Product updated successfully", updatedProduct)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if err := h.useCase.DeleteProduct(c.Request.Context(), id); err != nil {
		h.log.Warnf("Failed to delete product ID %s: %v", id, err)
		failWith(c, "Failed to delete product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product deleted successfully", nil)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	limit, offset := paging(c)
	filter := domain.ProductFilter{
		CategoryID: c.Query("category_id"),
		Query:      c.Query("q"),
		Limit:      limit,
		Offset:     offset,
	}

	products, err := h.useCase.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.log.Errorf("Failed to list products: %v", err)
		failWith(c, "Failed to retrieve products", err)
		return
	}

	if len(products) == 0 {
		SuccessResponse(c, http.StatusOK, "No products found matching criteria", []domain.Product{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}

func (h *ProductHandler) ListLowStock(c *gin.Context) {
	products, err := h.useCase.ListLowStock(c.Request.Context())
	if err != nil {
		failWith(c, "Failed to retrieve low-stock products", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Low-stock products retrieved successfully", products)
}
