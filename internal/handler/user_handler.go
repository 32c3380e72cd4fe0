package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"kanban/internal/service"
)

// UserHandler serves user lookups.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// EmailCheck godoc
// @Summary Look up a user by email
// @Description Case-insensitive. Used by clients to resolve member ids before adding them to a board.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email query string true "Email address"
// @Success 200 {object} UserInfo
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /email-check [get]
func (h *UserHandler) EmailCheck(c echo.Context) error {
	if _, err := actor(c); err != nil {
		return err
	}
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return badRequest("email query parameter is required", "MISSING_EMAIL")
	}

	user, err := h.svc.FindByEmail(c.Request().Context(), email)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusOK, userInfo(user))
}
