package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyRequestID doubles as the context key and the HTTP header carrying the
// correlation id.
const KeyRequestID = "X-Request-ID"

// RequestID tags every request with a correlation id. An id supplied by the
// caller is kept, so front-end traces line up with the access log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(KeyRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}
