package http

import (
	"arenahub/internal/infrastructure/middleware"
	"arenahub/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Envelope is the success shape shared by every endpoint. Failures are
// rendered by middleware.ErrorHandlerMiddleware.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// fail hands err to the error middleware, translating domain errors.
func fail(c *gin.Context, err error) {
	_ = c.Error(middleware.ToAppError(err))
	c.Abort()
}

func invalid(c *gin.Context, err error) {
	_ = c.Error(errors.NewValidationError(err.Error()))
	c.Abort()
}

// bindJSON decodes the body, reporting malformed input as VALIDATION_ERROR.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errors.NewValidationError("invalid request format"))
		c.Abort()
		return false
	}
	return true
}
