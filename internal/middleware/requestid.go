package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// RequestIDKey is the gin context key for the request ID.
	RequestIDKey = "request_id"

	// RequestIDHeader is the HTTP header used to propagate the request ID.
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with a UUID. A client-supplied X-Request-ID is
// kept when it parses as a UUID so callers can correlate their own logs;
// anything else is replaced by a server-generated ID.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			if parsed, err := uuid.Parse(clientID); err == nil {
				id = parsed.String()
			} else {
				log.WithFields(logrus.Fields{
					"request_id":        id,
					"client_request_id": truncateKey(clientID),
				}).Debug("ignoring malformed client request ID")
			}
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
