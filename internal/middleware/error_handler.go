package middleware

import (
	"github.com/gin-gonic/gin"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем есть ли ошибки
		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			statusCode := errors.HTTPStatusFromError(err.Err)
			if statusCode >= 500 {
				log.Error("Request failed", "path", c.FullPath(), "error", err.Err)
			}

			if c.Writer.Written() {
				return
			}
			c.JSON(statusCode, gin.H{
				"error": errors.PublicMessage(err.Err),
				"code":  errors.Code(err.Err),
			})
		}
	}
}
