package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// bodyLimit rejects requests with a body larger than maxBytes with 413. A non-positive maxBytes disables the limit.
func bodyLimit(maxBytes int64) echo.MiddlewareFunc {
	if maxBytes <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BodyLimit(strconv.FormatInt(maxBytes, 10))
}
