package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"pos_service/internal/domain"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

// failWith answers with the status mapped from err. Server-side failures do
// not echo driver messages back to the client.
func failWith(c *gin.Context, prefix string, err error) int {
	statusCode := mapErrorToStatus(err)
	if statusCode >= http.StatusInternalServerError {
		var perr *domain.PersistenceError
		if errors.As(err, &perr) {
			ErrorResponse(c, statusCode, prefix+": could not save while "+perr.Stage+"; no changes were recorded")
		} else {
			ErrorResponse(c, statusCode, prefix+": internal server error")
		}
		_ = c.Error(err)
		return statusCode
	}
	ErrorResponse(c, statusCode, prefix+": "+err.Error())
	return statusCode
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrSaleNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateSKU),
		errors.Is(err, domain.ErrProductInUse),
		errors.Is(err, domain.ErrCategoryExists),
		errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidPaymentMode),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// paging reads limit/offset query params, falling back to 10 and 0.
func paging(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
