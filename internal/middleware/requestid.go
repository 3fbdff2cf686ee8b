package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier between the gateway, its
	// upstream proxies, and the caller.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID is stored
	// so handlers and later middleware can read it without touching headers.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware tags every request with a unique identifier. An inbound
// X-Request-ID (from a load balancer or the FreeRADIUS rlm_rest client) is
// reused unchanged; otherwise a fresh UUID v4 is generated. The ID is stored
// in the context under RequestIDKey and echoed back in the response header so
// callers can correlate a failed RADIUS exchange with the gateway's structured
// log entries.
//
// Register it before the logging middleware so every access log line carries
// the ID:
//
//	router.Use(gin.Recovery())
//	router.Use(RequestIDMiddleware())
//	router.Use(LoggerMiddleware(cfg))
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
