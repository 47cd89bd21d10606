package delivery

import (
	"net/http"

	"pos_service/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ReportHandler struct {
	useCase usecase.ReportUseCase
	log     *logrus.Logger
}

func NewReportHandler(uc usecase.ReportUseCase, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *ReportHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/reports/summary", h.Summary)
}

func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.useCase.DailySummary(c.Request.Context(), c.Query("date"))
	if err != nil {
		failWith(c, "Failed to build sales summary", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Sales summary retrieved successfully", summary)
}
