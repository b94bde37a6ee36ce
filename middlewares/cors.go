package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginAllowed reports whether origin is in the comma-separated allowed list.
// "*" allows everything.
func OriginAllowed(allowed, origin string) bool {
	for _, o := range strings.Split(allowed, ",") {
		o = strings.TrimSpace(o)
		if o == "*" || (o != "" && o == origin) {
			return true
		}
	}
	return false
}

// CORSMiddlewares echoes the request origin when it is allowed, falling back to
// the first configured origin for clients that send none.
func CORSMiddlewares(allowed string) gin.HandlerFunc {
	fallback := strings.TrimSpace(strings.SplitN(allowed, ",", 2)[0])

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		switch {
		case origin != "" && OriginAllowed(allowed, origin):
			h.Set("Access-Control-Allow-Origin", origin)
		case origin == "":
			h.Set("Access-Control-Allow-Origin", fallback)
		}
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, Sec-WebSocket-Protocol, Sec-WebSocket-Version, Sec-WebSocket-Key, Upgrade")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		// checkout replays and receipt downloads are told apart by these
		h.Set("Access-Control-Expose-Headers", "Idempotent-Replayed, Checkout-Stage, Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
