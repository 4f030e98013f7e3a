package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cors allows browser Breeze clients on other origins to fetch metadata.
// ETag is exposed so clients can revalidate with If-None-Match.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, If-None-Match, "+CorrelationIDHeader)
		c.Header("Access-Control-Expose-Headers", "ETag, "+CorrelationIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
