package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// HandleServiceError maps service errors to HTTP answers. Unknown errors are logged
// and reported as 500 without details.
func HandleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var authErr *AuthError

	switch {
	case errors.As(err, &authErr):
		RespondError(c, http.StatusUnauthorized, authErr.Message)
	case errors.Is(err, ErrProductNotFound):
		RespondError(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, ErrEmptyCart):
		RespondError(c, http.StatusBadRequest, "Cart is empty")
	case errors.Is(err, ErrInvalidPlan):
		RespondError(c, http.StatusBadRequest, "Plan must be monthly or yearly")
	case errors.Is(err, ErrInvalidQuantity):
		RespondError(c, http.StatusBadRequest, "Quantity must be greater than 0")
	case errors.Is(err, ErrInvalidImagePayload):
		RespondError(c, http.StatusBadRequest, "Image payload is required")
	case errors.Is(err, ErrInvalidOTP):
		RespondError(c, http.StatusUnauthorized, "Code invalide ou expiré")
	case errors.Is(err, ErrNotAuthenticated):
		RespondError(c, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, ErrBackendUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "Remote backend not configured")
	case errors.Is(err, ErrMailDelivery):
		logger.Error("mail delivery failed", zap.Error(err), zap.String("trace_id", traceID(c)))
		RespondError(c, http.StatusBadGateway, "Could not send e-mail")
	default:
		logger.Error("unhandled service error", zap.Error(err), zap.String("trace_id", traceID(c)))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
