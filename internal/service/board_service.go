package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kanban/internal/errors"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/permission"
	"kanban/internal/repository"
)

// BoardUpdate carries the optional fields of a board patch. A nil Members
// leaves membership untouched; a non-nil empty slice leaves only the owner.
type BoardUpdate struct {
	Title   *string
	Members *[]uint
}

// BoardService handles boards and their membership.
type BoardService interface {
	List(ctx context.Context, actorID uint) ([]model.Board, error)
	Create(ctx context.Context, actorID uint, title string, memberIDs []uint) (*model.Board, error)
	Get(ctx context.Context, actorID, boardID uint) (*model.Board, error)
	Update(ctx context.Context, actorID, boardID uint, in BoardUpdate) (*model.Board, error)
	Delete(ctx context.Context, actorID, boardID uint) error
}

type boardService struct {
	store   repository.Store
	guard   guard
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewBoardService creates a new board service.
func NewBoardService(store repository.Store, logger *zap.Logger, m *metrics.Metrics) BoardService {
	g := newGuard(logger, m)
	return &boardService{store: store, guard: g, logger: g.logger, metrics: m}
}

// List returns boards the actor owns or is a member of.
func (s *boardService) List(ctx context.Context, actorID uint) ([]model.Board, error) {
	boards, err := s.store.Boards().ListForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

// Create makes the actor owner and member. Every member id must resolve.
func (s *boardService) Create(ctx context.Context, actorID uint, title string, memberIDs []uint) (*model.Board, error) {
	title, err := requireTitle(title)
	if err != nil {
		return nil, err
	}
	members := model.UniqueIDs(append([]uint{actorID}, memberIDs...))

	var board *model.Board
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := requireUsers(ctx, tx, members, errors.ErrUnknownMember); err != nil {
			return err
		}

		created := &model.Board{Title: title, OwnerID: actorID}
		if err := tx.Boards().Create(ctx, created, members); err != nil {
			return fmt.Errorf("create board: %w", err)
		}

		board, err = tx.Boards().FindByID(ctx, created.ID)
		if err != nil {
			return fmt.Errorf("reload board: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBoardCreated()
	s.logger.Info("board created",
		zap.Uint("board_id", board.ID),
		zap.Uint("owner_id", actorID),
		zap.Int("member_count", board.MemberCount),
	)
	return board, nil
}

// Get returns the board with members and tasks. A denied read surfaces as a
// ForbiddenError; the transport decides how much of that to reveal.
func (s *boardService) Get(ctx context.Context, actorID, boardID uint) (*model.Board, error) {
	board, err := s.store.Boards().FindDetail(ctx, boardID)
	if err != nil {
		return nil, notFound(err, errors.ErrBoardNotFound, "load board")
	}
	if err := s.guard.authorize(actorID, permission.BoardRead, permission.ForBoard(board)); err != nil {
		return nil, err
	}
	return board, nil
}

// Update applies a title change and/or replaces the member set. The owner
// always stays a member. Unknown member ids reject the whole patch.
func (s *boardService) Update(ctx context.Context, actorID, boardID uint, in BoardUpdate) (*model.Board, error) {
	var title string
	if in.Title != nil {
		t, err := requireTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}

	var board *model.Board
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := loadBoardForUpdate(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if err := s.guard.authorize(actorID, permission.BoardUpdate, permission.ForBoard(current)); err != nil {
			return err
		}

		if in.Title != nil {
			if err := tx.Boards().UpdateTitle(ctx, boardID, title); err != nil {
				return fmt.Errorf("update title: %w", err)
			}
		}

		if in.Members != nil {
			members := model.UniqueIDs(append([]uint{current.OwnerID}, *in.Members...))
			if err := requireUsers(ctx, tx, members, errors.ErrUnknownMember); err != nil {
				return err
			}
			if err := tx.Boards().ReplaceMembers(ctx, boardID, members); err != nil {
				return fmt.Errorf("replace members: %w", err)
			}
		}

		board, err = tx.Boards().FindByID(ctx, boardID)
		if err != nil {
			return fmt.Errorf("reload board: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("board updated",
		zap.Uint("board_id", boardID),
		zap.Uint("user_id", actorID),
		zap.Bool("members_replaced", in.Members != nil),
		zap.Uints("member_ids", board.MemberIDs()),
	)
	return board, nil
}

// Delete removes the board with its tasks and comments. Owner only.
func (s *boardService) Delete(ctx context.Context, actorID, boardID uint) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		board, err := loadBoardForUpdate(ctx, tx, boardID)
		if err != nil {
			return err
		}
		if err := s.guard.authorize(actorID, permission.BoardDelete, permission.ForBoard(board)); err != nil {
			return err
		}
		if err := tx.Boards().Delete(ctx, boardID); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("board deleted", zap.Uint("board_id", boardID), zap.Uint("user_id", actorID))
	return nil
}
