package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kanban/internal/auth"
	"kanban/internal/errors"
	"kanban/internal/model"
)

const (
	// TokenContextKey is where the bearer middleware leaves the parsed token.
	TokenContextKey = "user"

	userIDKey = "user_id"
	claimsKey = "claims"
)

// UserLookup resolves the subject of an access token.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
}

func internalError() error {
	return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{
		Error: "internal server error",
		Code:  "INTERNAL_ERROR",
	})
}

func unauthorized(message string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

// CurrentUser runs after the JWT middleware. It accepts only access tokens
// whose jti has not been blacklisted by a logout and whose user still exists,
// and exposes the user id to handlers through UserID.
func CurrentUser(tokens auth.TokenStoreInterface, users UserLookup, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(TokenContextKey).(*jwt.Token)
			if !ok || !token.Valid {
				return unauthorized("invalid token")
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok || claims.UserID == 0 {
				return unauthorized("invalid token claims")
			}
			if claims.TokenType != auth.TokenTypeAccess {
				return unauthorized("access token required")
			}

			if claims.ID != "" {
				revoked, err := tokens.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
				if err != nil {
					logger.Error("blacklist lookup failed", zap.Error(err))
					return internalError()
				}
				if revoked {
					return unauthorized("token has been revoked")
				}
			}

			if _, err := users.GetUser(c.Request().Context(), claims.UserID); err != nil {
				if errors.Is(err, errors.ErrUserNotFound) {
					return unauthorized("user no longer exists")
				}
				logger.Error("user lookup failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
				return internalError()
			}

			c.Set(userIDKey, claims.UserID)
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id set by CurrentUser.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDKey).(uint)
	return id, ok && id != 0
}

// Claims returns the access token claims set by CurrentUser.
func Claims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsKey).(*auth.Claims)
	return claims
}
