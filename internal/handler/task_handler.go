package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"kanban/internal/errors"
	"kanban/internal/model"
	"kanban/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Board       uint    `json:"board" validate:"required"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	AssigneeID  *uint   `json:"assignee_id"`
	ReviewerID  *uint   `json:"reviewer_id"`
	DueDate     *string `json:"due_date" example:"2025-03-01"`
}

// UpdateTaskRequest represents a partial task update. For assignee_id,
// reviewer_id and due_date an explicit null clears the value and an absent
// key leaves it unchanged.
type UpdateTaskRequest struct {
	Title       *string      `json:"title" validate:"omitempty,max=255"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	Priority    *string      `json:"priority"`
	AssigneeID  optionalID   `json:"assignee_id" swaggertype:"integer"`
	ReviewerID  optionalID   `json:"reviewer_id" swaggertype:"integer"`
	DueDate     optionalDate `json:"due_date" swaggertype:"string" example:"2025-03-01"`
}

// optionalID tells an explicit null apart from an absent key.
type optionalID struct {
	Set   bool
	Value *uint
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type optionalDate struct {
	Set   bool
	Value *string
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, errors.NewValidationError("due_date", "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

func optionalStatus(s *string) *model.TaskStatus {
	if s == nil {
		return nil
	}
	status := model.TaskStatus(*s)
	return &status
}

func optionalPriority(p *string) *model.TaskPriority {
	if p == nil {
		return nil
	}
	priority := model.TaskPriority(*p)
	return &priority
}

// CreateTask godoc
// @Summary Create a task on a board
// @Description Caller must be the board owner or a member. Status defaults to to-do and priority to medium.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task data"
// @Success 201 {object} TaskResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	var req CreateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return respond(err)
	}

	task, err := h.taskService.Create(c.Request().Context(), userID, service.TaskInput{
		BoardID:     req.Board,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatus(req.Status),
		Priority:    model.TaskPriority(req.Priority),
		AssigneeID:  req.AssigneeID,
		ReviewerID:  req.ReviewerID,
		DueDate:     dueDate,
	})
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusCreated, taskResponse(task))
}

// UpdateTask godoc
// @Summary Update a task
// @Description Caller must be a board member.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to change"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id", errors.ErrTaskNotFound)
	if err != nil {
		return err
	}
	var req UpdateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	patch := service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      optionalStatus(req.Status),
		Priority:    optionalPriority(req.Priority),
		AssigneeSet: req.AssigneeID.Set,
		AssigneeID:  req.AssigneeID.Value,
		ReviewerSet: req.ReviewerID.Set,
		ReviewerID:  req.ReviewerID.Value,
		DueDateSet:  req.DueDate.Set,
	}
	if req.DueDate.Set {
		if patch.DueDate, err = parseDueDate(req.DueDate.Value); err != nil {
			return respond(err)
		}
	}

	task, err := h.taskService.Update(c.Request().Context(), userID, taskID, patch)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusOK, taskResponse(task))
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Only the task creator or the board owner may delete. Returns the task as it was.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id", errors.ErrTaskNotFound)
	if err != nil {
		return err
	}

	task, err := h.taskService.Delete(c.Request().Context(), userID, taskID)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusOK, taskResponse(task))
}

// AssignedToMe godoc
// @Summary List tasks assigned to the caller
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks/assigned-to-me [get]
func (h *TaskHandler) AssignedToMe(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	tasks, err := h.taskService.AssignedTo(c.Request().Context(), userID)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusOK, taskResponses(tasks))
}

// Reviewing godoc
// @Summary List tasks the caller reviews
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks/reviewing [get]
func (h *TaskHandler) Reviewing(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	tasks, err := h.taskService.Reviewing(c.Request().Context(), userID)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusOK, taskResponses(tasks))
}
