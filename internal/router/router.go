package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"kanban/internal/auth"
	"kanban/internal/errors"
	"kanban/internal/handler"
	"kanban/internal/metrics"
	"kanban/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Board   *handler.BoardHandler
	Task    *handler.TaskHandler
	Comment *handler.CommentHandler
}

// Options carries the non-handler dependencies of the router.
type Options struct {
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	JWTService *auth.JWTService
	TokenStore auth.TokenStoreInterface
	Users      middleware.UserLookup
}

// Register wires routes and middleware.
func Register(e *echo.Echo, opts Options, h Handlers) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(opts.Metrics))
	e.Use(middleware.Recovery(logger))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/registration", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.POST("/token/refresh", h.Auth.Refresh)

	// Secured routes (require a valid, non-revoked access token)
	secured := api.Group("",
		echojwt.WithConfig(echojwt.Config{
			SigningKey:    opts.JWTService.Secret(),
			SigningMethod: jwt.SigningMethodHS256.Alg(),
			ContextKey:    middleware.TokenContextKey,
			NewClaimsFunc: func(echo.Context) jwt.Claims { return new(auth.Claims) },
		}),
		middleware.CurrentUser(opts.TokenStore, opts.Users, logger),
	)

	secured.POST("/logout", h.Auth.Logout)
	secured.GET("/email-check", h.User.EmailCheck)

	secured.GET("/boards", h.Board.ListBoards)
	secured.POST("/boards", h.Board.CreateBoard)
	secured.GET("/boards/:id", h.Board.GetBoard)
	secured.PATCH("/boards/:id", h.Board.UpdateBoard)
	secured.DELETE("/boards/:id", h.Board.DeleteBoard)

	secured.GET("/tasks/assigned-to-me", h.Task.AssignedToMe)
	secured.GET("/tasks/reviewing", h.Task.Reviewing)
	secured.POST("/tasks", h.Task.CreateTask)
	secured.PATCH("/tasks/:id", h.Task.UpdateTask)
	secured.DELETE("/tasks/:id", h.Task.DeleteTask)

	secured.GET("/tasks/:id/comments", h.Comment.ListComments)
	secured.POST("/tasks/:id/comments", h.Comment.CreateComment)
	secured.DELETE("/tasks/:id/comments/:comment_id", h.Comment.DeleteComment)
}

// ErrorHandler renders every error as an {error, code} body. Errors that did
// not come from a handler as *echo.HTTPError go through the domain mapping.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			mapped := errors.MapErrorToHTTP(err)
			he = echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
		}
		if he.Code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.Error(err), zap.String("path", c.Request().URL.Path))
		}

		body := he.Message
		if msg, ok := he.Message.(string); ok {
			body = errors.ErrorResponse{Error: msg, Code: codeForStatus(he.Code)}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(he.Code)
		} else {
			writeErr = c.JSON(he.Code, body)
		}
		if writeErr != nil {
			logger.Error("write error response", zap.Error(writeErr))
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "ERROR"
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
