package server

import (
	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-checkout/trace"
)

// TraceContext stores the request ID and W3C trace headers of the inbound
// request in its context, so outbound provider calls carry the same IDs
// without depending on Echo.
func TraceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			h := req.Header.Clone()
			if h.Get(echo.HeaderXRequestID) == "" {
				h.Set(echo.HeaderXRequestID, c.Response().Header().Get(echo.HeaderXRequestID))
			}
			c.SetRequest(req.WithContext(trace.FromHeaders(req.Context(), h)))
			return next(c)
		}
	}
}
