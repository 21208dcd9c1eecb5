package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/sportshub-ticketing/internal/logging"
)

// callerKey identifies the caller for rate limiting: the authenticated
// user id when JWTAuth ran earlier, "anon" otherwise.
func callerKey(c echo.Context) string {
	if id, ok := c.Get(ContextUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// RequestID assigns every request a uuid, echoes it in X-Request-ID and
// makes it available to logging.Ctx through the request context.  An
// incoming X-Request-ID is kept.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: logging.NewRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			r := c.Request()
			c.SetRequest(r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
		},
	})
}
