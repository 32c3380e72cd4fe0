package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kanban/internal/errors"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/permission"
	"kanban/internal/repository"
)

// guard evaluates permission rules and records denials.
type guard struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func newGuard(logger *zap.Logger, m *metrics.Metrics) guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return guard{logger: logger, metrics: m}
}

func (g guard) authorize(actor uint, action permission.Action, s permission.Subject) error {
	if err := permission.Authorize(actor, action, s); err != nil {
		g.metrics.RecordDenied(string(action))
		g.logger.Info("permission denied",
			zap.Uint("user_id", actor),
			zap.String("action", string(action)),
			zap.String("entity", s.Entity),
			zap.Uint("entity_id", s.EntityID),
		)
		return err
	}
	return nil
}

// notFound turns a missing row into sentinel and wraps any other failure.
func notFound(err, sentinel error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

// loadBoardForUpdate locks the board and returns it with members.
func loadBoardForUpdate(ctx context.Context, tx repository.Store, id uint) (*model.Board, error) {
	board, err := tx.Boards().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrBoardNotFound, "load board")
	}
	return board, nil
}

// requireUsers fails with sentinel unless every id resolves to a user.
func requireUsers(ctx context.Context, tx repository.Store, ids []uint, sentinel error) error {
	ids = model.UniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	users, err := tx.Users().FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if len(users) != len(ids) {
		return sentinel
	}
	return nil
}

func requireTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.NewValidationError("title", "must not be blank")
	}
	if len([]rune(title)) > 255 {
		return "", errors.NewValidationError("title", "must be at most 255 characters")
	}
	return title, nil
}
