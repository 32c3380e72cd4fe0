package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kanban/internal/errors"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/permission"
	"kanban/internal/repository"
)

// TaskInput is the payload for creating a task. Empty Status and Priority
// take their defaults.
type TaskInput struct {
	BoardID     uint
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    model.TaskPriority
	AssigneeID  *uint
	ReviewerID  *uint
	DueDate     *time.Time
}

// TaskPatch carries a partial task update. Pointer fields are applied when
// non-nil. The nullable references use a Set flag so that an explicit null
// clears the value while an absent field leaves it alone.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority

	AssigneeSet bool
	AssigneeID  *uint
	ReviewerSet bool
	ReviewerID  *uint
	DueDateSet  bool
	DueDate     *time.Time
}

// TaskService handles tasks and the board counters derived from them.
type TaskService interface {
	Create(ctx context.Context, actorID uint, in TaskInput) (*model.Task, error)
	Update(ctx context.Context, actorID, taskID uint, patch TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, actorID, taskID uint) (*model.Task, error)
	AssignedTo(ctx context.Context, userID uint) ([]model.Task, error)
	Reviewing(ctx context.Context, userID uint) ([]model.Task, error)
}

type taskService struct {
	store   repository.Store
	guard   guard
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewTaskService creates a new task service.
func NewTaskService(store repository.Store, logger *zap.Logger, m *metrics.Metrics) TaskService {
	g := newGuard(logger, m)
	return &taskService{store: store, guard: g, logger: g.logger, metrics: m}
}

func validStatus(s model.TaskStatus) error {
	if !s.Valid() {
		return errors.ErrInvalidStatus
	}
	return nil
}

func validPriority(p model.TaskPriority) error {
	if !p.Valid() {
		return errors.ErrInvalidPriority
	}
	return nil
}

func peopleOf(assignee, reviewer *uint) []uint {
	var ids []uint
	if assignee != nil {
		ids = append(ids, *assignee)
	}
	if reviewer != nil {
		ids = append(ids, *reviewer)
	}
	return ids
}

// Create adds a task to a board the actor owns or belongs to, then recounts
// the board's task counters.
func (s *taskService) Create(ctx context.Context, actorID uint, in TaskInput) (*model.Task, error) {
	if in.BoardID == 0 {
		return nil, errors.NewValidationError("board", "is required")
	}
	title, err := requireTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.TaskStatusToDo
	}
	if in.Priority == "" {
		in.Priority = model.TaskPriorityMedium
	}
	if err := validStatus(in.Status); err != nil {
		return nil, err
	}
	if err := validPriority(in.Priority); err != nil {
		return nil, err
	}

	var task *model.Task
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		board, err := loadBoardForUpdate(ctx, tx, in.BoardID)
		if err != nil {
			return err
		}
		subject := permission.ForBoard(board)
		subject.Entity = "task"
		if err := s.guard.authorize(actorID, permission.TaskCreate, subject); err != nil {
			return err
		}
		if err := requireUsers(ctx, tx, peopleOf(in.AssigneeID, in.ReviewerID), errors.ErrUnknownUser); err != nil {
			return err
		}

		created := &model.Task{
			BoardID:     board.ID,
			Title:       title,
			Description: in.Description,
			Status:      in.Status,
			Priority:    in.Priority,
			AssigneeID:  in.AssigneeID,
			ReviewerID:  in.ReviewerID,
			DueDate:     in.DueDate,
			CreatedByID: actorID,
		}
		if err := tx.Tasks().Create(ctx, created); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := tx.Boards().RecountTasks(ctx, board.ID); err != nil {
			return fmt.Errorf("recount tasks: %w", err)
		}

		task, err = tx.Tasks().FindByID(ctx, created.ID)
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTaskCreated()
	s.logger.Info("task created",
		zap.Uint("task_id", task.ID),
		zap.Uint("board_id", task.BoardID),
		zap.Uint("user_id", actorID),
	)
	return task, nil
}

// Update applies a partial change. Only board members may edit; board
// counters are recounted when status or priority is written.
func (s *taskService) Update(ctx context.Context, actorID, taskID uint, patch TaskPatch) (*model.Task, error) {
	var title string
	if patch.Title != nil {
		t, err := requireTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if patch.Status != nil {
		if err := validStatus(*patch.Status); err != nil {
			return nil, err
		}
	}
	if patch.Priority != nil {
		if err := validPriority(*patch.Priority); err != nil {
			return nil, err
		}
	}

	var task *model.Task
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := tx.Tasks().FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, errors.ErrTaskNotFound, "load task")
		}
		board, err := loadBoardForUpdate(ctx, tx, current.BoardID)
		if err != nil {
			return err
		}
		if err := s.guard.authorize(actorID, permission.TaskUpdate, permission.ForTask(board, current)); err != nil {
			return err
		}

		var refs []uint
		if patch.AssigneeSet {
			refs = append(refs, peopleOf(patch.AssigneeID, nil)...)
		}
		if patch.ReviewerSet {
			refs = append(refs, peopleOf(patch.ReviewerID, nil)...)
		}
		if err := requireUsers(ctx, tx, refs, errors.ErrUnknownUser); err != nil {
			return err
		}

		var columns []string
		recount := false
		if patch.Title != nil {
			current.Title = title
			columns = append(columns, "title")
		}
		if patch.Description != nil {
			current.Description = *patch.Description
			columns = append(columns, "description")
		}
		if patch.Status != nil {
			current.Status = *patch.Status
			columns = append(columns, "status")
			recount = true
		}
		if patch.Priority != nil {
			current.Priority = *patch.Priority
			columns = append(columns, "priority")
			recount = true
		}
		if patch.AssigneeSet {
			current.AssigneeID = patch.AssigneeID
			columns = append(columns, "assignee_id")
		}
		if patch.ReviewerSet {
			current.ReviewerID = patch.ReviewerID
			columns = append(columns, "reviewer_id")
		}
		if patch.DueDateSet {
			current.DueDate = patch.DueDate
			columns = append(columns, "due_date")
		}

		if err := tx.Tasks().Update(ctx, current, columns); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if recount {
			if err := tx.Boards().RecountTasks(ctx, current.BoardID); err != nil {
				return fmt.Errorf("recount tasks: %w", err)
			}
		}

		task, err = tx.Tasks().FindByID(ctx, taskID)
		if err != nil {
			return fmt.Errorf("reload task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task updated", zap.Uint("task_id", taskID), zap.Uint("user_id", actorID))
	return task, nil
}

// Delete removes the task and its comments and returns the task as it was.
// Only the task creator or the board owner may delete.
func (s *taskService) Delete(ctx context.Context, actorID, taskID uint) (*model.Task, error) {
	var prior *model.Task
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		task, err := tx.Tasks().FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, errors.ErrTaskNotFound, "load task")
		}
		board, err := loadBoardForUpdate(ctx, tx, task.BoardID)
		if err != nil {
			return err
		}
		if err := s.guard.authorize(actorID, permission.TaskDelete, permission.ForTask(board, task)); err != nil {
			return err
		}

		if err := tx.Tasks().Delete(ctx, taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := tx.Boards().RecountTasks(ctx, task.BoardID); err != nil {
			return fmt.Errorf("recount tasks: %w", err)
		}
		prior = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task deleted",
		zap.Uint("task_id", taskID),
		zap.Uint("board_id", prior.BoardID),
		zap.Uint("user_id", actorID),
	)
	return prior, nil
}

func (s *taskService) AssignedTo(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.store.Tasks().ListByAssignee(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Reviewing(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.store.Tasks().ListByReviewer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviewing tasks: %w", err)
	}
	return tasks, nil
}
