package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kanban/internal/errors"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/permission"
	"kanban/internal/repository"
)

// CommentService handles comments and the task comment counter.
type CommentService interface {
	List(ctx context.Context, actorID, taskID uint) ([]model.Comment, error)
	Create(ctx context.Context, actorID, taskID uint, content string) (*model.Comment, error)
	Delete(ctx context.Context, actorID, taskID, commentID uint) error
}

type commentService struct {
	store   repository.Store
	guard   guard
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCommentService creates a new comment service.
func NewCommentService(store repository.Store, logger *zap.Logger, m *metrics.Metrics) CommentService {
	g := newGuard(logger, m)
	return &commentService{store: store, guard: g, logger: g.logger, metrics: m}
}

func taskAndBoard(ctx context.Context, tx repository.Store, taskID uint, lock bool) (*model.Task, *model.Board, error) {
	task, err := tx.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, notFound(err, errors.ErrTaskNotFound, "load task")
	}
	var board *model.Board
	if lock {
		board, err = loadBoardForUpdate(ctx, tx, task.BoardID)
	} else {
		board, err = tx.Boards().FindByID(ctx, task.BoardID)
		if err != nil {
			err = notFound(err, errors.ErrBoardNotFound, "load board")
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return task, board, nil
}

// List returns the task's comments newest first.
func (s *commentService) List(ctx context.Context, actorID, taskID uint) ([]model.Comment, error) {
	task, board, err := taskAndBoard(ctx, s.store, taskID, false)
	if err != nil {
		return nil, err
	}
	if err := s.guard.authorize(actorID, permission.CommentRead, permission.ForTask(board, task)); err != nil {
		return nil, err
	}

	comments, err := s.store.Comments().ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Create adds a comment authored by the actor and recounts comments_count.
func (s *commentService) Create(ctx context.Context, actorID, taskID uint, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.ErrEmptyContent
	}

	var comment *model.Comment
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		task, board, err := taskAndBoard(ctx, tx, taskID, true)
		if err != nil {
			return err
		}
		if err := s.guard.authorize(actorID, permission.CommentCreate, permission.ForTask(board, task)); err != nil {
			return err
		}

		created := &model.Comment{TaskID: taskID, AuthorID: actorID, Content: content}
		if err := tx.Comments().Create(ctx, created); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		if err := tx.Tasks().RecountComments(ctx, taskID); err != nil {
			return fmt.Errorf("recount comments: %w", err)
		}

		comment, err = tx.Comments().FindByIDAndTask(ctx, created.ID, taskID)
		if err != nil {
			return fmt.Errorf("reload comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommentCreated()
	s.logger.Info("comment created",
		zap.Uint("comment_id", comment.ID),
		zap.Uint("task_id", taskID),
		zap.Uint("user_id", actorID),
	)
	return comment, nil
}

// Delete removes a comment of the given task. Only its author may do so.
func (s *commentService) Delete(ctx context.Context, actorID, taskID, commentID uint) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		task, board, err := taskAndBoard(ctx, tx, taskID, true)
		if err != nil {
			return err
		}
		comment, err := tx.Comments().FindByIDAndTask(ctx, commentID, taskID)
		if err != nil {
			return notFound(err, errors.ErrCommentNotFound, "load comment")
		}
		if err := s.guard.authorize(actorID, permission.CommentDelete, permission.ForComment(board, task, comment)); err != nil {
			return err
		}

		if err := tx.Comments().Delete(ctx, commentID); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if err := tx.Tasks().RecountComments(ctx, taskID); err != nil {
			return fmt.Errorf("recount comments: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		zap.Uint("comment_id", commentID),
		zap.Uint("task_id", taskID),
		zap.Uint("user_id", actorID),
	)
	return nil
}
