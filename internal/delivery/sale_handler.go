package delivery

import (
	"net/http"

	"pos_service/internal/domain"
	"pos_service/internal/middleware"
	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SaleHandler struct {
	checkout usecase.CheckoutUseCase
	sales    usecase.SaleUseCase
	log      *logrus.Logger
}

func NewSaleHandler(checkout usecase.CheckoutUseCase, sales usecase.SaleUseCase, logger *logrus.Logger) *SaleHandler {
	return &SaleHandler{
		checkout: checkout,
		sales:    sales,
		log:      logger,
	}
}

type validateCartRequest struct {
	Items []domain.CartLine `json:"items"`
}

func (h *SaleHandler) RegisterRoutes(router gin.IRouter) {
	sales := router.Group("/sales")
	{
		sales.POST("", h.CreateSale)
		sales.POST("/validate", h.ValidateCart)
		sales.GET("", h.ListSales)
		sales.GET("/:id", h.GetSaleByID)
	}
}

// CreateSale runs checkout for the signed-in cashier.
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for checkout: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if session, ok := middleware.CurrentSession(c); ok {
		req.CashierID = session.UserID
	}

	sale, err := h.checkout.Checkout(c.Request.Context(), &req)
	if err != nil {
		failWith(c, "Failed to complete sale", err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Sale completed successfully", sale)
}

func (h *SaleHandler) ValidateCart(c *gin.Context) {
	var req validateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	result, err := h.checkout.ValidateCart(c.Request.Context(), req.Items)
	if err != nil {
		failWith(c, "Cart is not valid", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart is valid", result)
}

func (h *SaleHandler) ListSales(c *gin.Context) {
	limit, offset := paging(c)
	sales, err := h.sales.ListSales(c.Request.Context(), c.Query("from"), c.Query("to"), limit, offset)
	if err != nil {
		failWith(c, "Failed to retrieve sales", err)
		return
	}
	if len(sales) == 0 {
		SuccessResponse(c, http.StatusOK, "No sales found matching criteria", []domain.Sale{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Sales retrieved successfully", sales)
}

func (h *SaleHandler) GetSaleByID(c *gin.Context) {
	sale, err := h.sales.GetSaleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, "Failed to retrieve sale", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Sale retrieved successfully", sale)
}
