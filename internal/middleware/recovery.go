package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ContextSessionID is set by the session middleware once a dashboard session
// is attached to the request.
const ContextSessionID = "session_id"

// Recovery logs a panic with the request and session it happened in. Browsers
// get a short text page, API callers the JSON error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rid := c.GetString(ContextRequestID)
				log.Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("route", routeOf(c)).
					Str("request_id", rid).
					Str("session_id", c.GetString(ContextSessionID)).
					Msg("Request panic recovered")

				if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEHTML {
					c.Abort()
					c.String(http.StatusInternalServerError,
						"Something went wrong. Reload the page to try again. (ref %s)", rid)
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Code:    http.StatusInternalServerError,
					Message: "Internal server error",
					TraceID: rid,
				})
			}
		}()
		c.Next()
	}
}

// routeOf keeps unmatched paths out of the logs as free text.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
