package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response with the HTTP status implied by
// the error's application code.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := err.(*errors.AppError); ok {
		statusCode = httpStatus(appErr.Code)
		message = appErr.Message
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    statusCode,
			Message: message,
		},
	})
}

func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest, errors.ErrValidation, errors.ErrInvalidDuration:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrNoConfig:
		return http.StatusUnprocessableEntity
	case errors.ErrSlotConflict, errors.ErrDoubleBooking, errors.ErrInvalidTransition:
		return http.StatusConflict
	case errors.ErrOutOfWindow, errors.ErrExceedsWindow,
		errors.ErrCancellationWindow, errors.ErrFutureDate:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
