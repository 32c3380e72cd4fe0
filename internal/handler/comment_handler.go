package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban/internal/errors"
	"kanban/internal/service"
)

// CommentHandler handles comments nested under a task.
type CommentHandler struct {
	commentService service.CommentService
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CreateCommentRequest represents a new comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// ListComments godoc
// @Summary List a task's comments, newest first
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {array} CommentResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/comments [get]
func (h *CommentHandler) ListComments(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id", errors.ErrTaskNotFound)
	if err != nil {
		return err
	}

	comments, err := h.commentService.List(c.Request().Context(), userID, taskID)
	if err != nil {
		return respond(err)
	}
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, commentResponse(&comments[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateComment godoc
// @Summary Comment on a task
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/comments [post]
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id", errors.ErrTaskNotFound)
	if err != nil {
		return err
	}
	var req CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	comment, err := h.commentService.Create(c.Request().Context(), userID, taskID, req.Content)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusCreated, commentResponse(comment))
}

// DeleteComment godoc
// @Summary Delete a comment
// @Description Only the comment's author may delete it.
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param comment_id path int true "Comment ID"
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/comments/{comment_id} [delete]
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id", errors.ErrTaskNotFound)
	if err != nil {
		return err
	}
	commentID, err := pathID(c, "comment_id", errors.ErrCommentNotFound)
	if err != nil {
		return err
	}

	if err := h.commentService.Delete(c.Request().Context(), userID, taskID, commentID); err != nil {
		return respond(err)
	}
	return c.NoContent(http.StatusNoContent)
}
