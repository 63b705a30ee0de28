package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/caaa-research/engine/internal/errors"
	"github.com/caaa-research/engine/internal/logger"
)

// ErrorMiddleware drains gin's per-request error list after the
// handler chain runs and writes the last error as the response body,
// without leaking internal causes to the client.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := err.(*appErrors.AppError)
		if !ok {
			appErr = appErrors.NewInternalServerError(err.Error())
		}
		logger.Error(c.Request.Context(), "request failed", "error", appErr.Error())
		c.JSON(appErr.Code, gin.H{"success": false, "message": appErr.Message})
	}
}

// respondOK writes a 200 {"success": true, "data": ...} envelope.
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// created writes a 201 success envelope.
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}
