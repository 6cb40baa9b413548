package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/elostora/shop/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an ID and logs its outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set("requestID", requestID)

		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if id := AccountID(c); id != 0 {
			entry = entry.WithField("account_id", id)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Warn("request completed with errors")
		default:
			entry.Debug("request completed")
		}
	}
}

// RateLimit throttles action per account when authenticated and per client IP otherwise.
func RateLimit(limiter *ratelimit.Manager, action ratelimit.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		result, errAllow := limiter.Check(c.Request.Context(), action, AccountID(c), c.ClientIP())
		if errAllow != nil {
			log.WithError(errAllow).WithField("action", string(action)).Warn("rate limit check failed")
			c.Next()
			return
		}
		if !result.Reset.IsZero() {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
		}
		if !result.Allowed {
			retryAfter := int(time.Until(result.Reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
