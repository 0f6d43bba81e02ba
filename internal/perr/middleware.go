package perr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playdar/resolverd/internal/playdarlog"
)

// ErrorHandler converts any *Error left on the gin context into the
// mechanical 4xx/5xx JSON response §7 describes.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		log := playdarlog.HTTP()
		err := c.Errors.Last()

		if e, ok := err.Err.(*Error); ok {
			if e.StatusCode >= 500 {
				log.Error().Str("kind", e.Kind).Str("details", e.Details).Msg(e.Message)
			} else {
				log.Warn().Str("kind", e.Kind).Msg(e.Message)
			}
			c.JSON(e.StatusCode, e.ToResponse())
			return
		}

		log.Error().Err(err.Err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, Response{
			Error:   "INTERNAL",
			Message: "an unexpected error occurred",
			Kind:    "INTERNAL",
		})
	}
}

// Recovery recovers from panics raised by handlers and reports them as 500s.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				playdarlog.HTTP().Error().Interface("panic", r).Msg("recovered from panic")
				c.JSON(http.StatusInternalServerError, Response{
					Error:   "INTERNAL",
					Message: "an unexpected error occurred",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Abort aborts the request immediately with err's mapped status and body.
func Abort(c *gin.Context, err *Error) {
	c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode, err.ToResponse())
}

// Handle attaches err to the context and writes its response without
// aborting gin's handler chain (used where a handler still wants to run
// deferred cleanup after responding).
func Handle(c *gin.Context, err error) {
	if e, ok := err.(*Error); ok {
		c.Error(e)
		c.JSON(e.StatusCode, e.ToResponse())
		return
	}
	e := New("INTERNAL", err.Error())
	c.Error(e)
	c.JSON(e.StatusCode, e.ToResponse())
}
