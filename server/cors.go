package server

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gaborage/go-checkout/trace"
)

const corsMaxAge = 86400

// CORS returns a CORS middleware for the given origins. An empty list allows
// any origin. Credentials are only allowed for an explicit origin list.
func CORS(origins []string) echo.MiddlewareFunc {
	allowed := slices.DeleteFunc(slices.Clone(origins), func(o string) bool { return o == "" })
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowed,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestID,
			trace.HeaderTraceParent,
			trace.HeaderTraceState,
		},
		ExposeHeaders: []string{
			echo.HeaderXRequestID,
			HeaderXResponseTime,
		},
		AllowCredentials: !slices.Contains(allowed, "*"),
		MaxAge:           corsMaxAge,
	})
}
