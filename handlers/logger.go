package handlers

import (
	"net/http"

	"doemais/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger returns the request-scoped logger set by RequestLogger, or the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// currentUserID returns the id stored by JWTAuthMiddleware.
func currentUserID(c *gin.Context) string {
	return c.GetString("userID")
}

// bindJSON decodes the body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		getLogger(c).Debug("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}
