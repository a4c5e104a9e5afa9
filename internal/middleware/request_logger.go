package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"support_chat/pkg/logger"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// токен сокета приходит в query, поэтому query не логируем
		args := []any{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if c.Writer.Status() >= 500 {
			log.Error("HTTP request", args...)
			return
		}
		log.Info("HTTP request", args...)
	}
}
