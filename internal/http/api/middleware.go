package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fidelicard/loyalty/internal/gate"
)

// requestIDHeader carries the request id back to the client.
const requestIDHeader = "X-Request-ID"

// adminPasswordHeader carries the shared admin password in shared-password mode.
const adminPasswordHeader = "X-Admin-Password"

// RequestLogger tags every request with a uuid and writes one access log
// line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Info("request")
	}
}

// GateMiddleware guards sensitive routes. In operator mode it validates a
// Bearer session token; otherwise it checks the shared admin password
// header. Denials carry no side effects.
func GateMiddleware(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.OperatorMode() {
			authHeader := c.GetHeader("Authorization")
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || token == authHeader || strings.TrimSpace(token) == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			claims, errParse := g.ParseToken(strings.TrimSpace(token))
			if errParse != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Set("operator", claims.Username)
			c.Next()
			return
		}

		if errCheck := g.CheckAdminPassword(c.GetHeader(adminPasswordHeader)); errCheck != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
			return
		}
		c.Next()
	}
}
