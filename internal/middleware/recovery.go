package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kanban/internal/errors"
)

// Recovery turns a panic into a 500 response and logs it with a stack trace.
func Recovery(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				logger.Error("panic recovered",
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path),
					zap.Stack("stacktrace"),
				)
				err = echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
					Error: "internal server error",
					Code:  "INTERNAL_ERROR",
				})
			}()
			return next(c)
		}
	}
}
