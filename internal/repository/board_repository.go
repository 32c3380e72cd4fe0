package repository

import (
	"context"

	"gorm.io/gorm"

	"kanban/internal/model"
)

// BoardRepository defines board and membership persistence operations.
type BoardRepository interface {
	Create(ctx context.Context, board *model.Board, memberIDs []uint) error
	FindByID(ctx context.Context, id uint) (*model.Board, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Board, error)
	FindDetail(ctx context.Context, id uint) (*model.Board, error)
	ListForUser(ctx context.Context, userID uint) ([]model.Board, error)
	UpdateTitle(ctx context.Context, id uint, title string) error
	ReplaceMembers(ctx context.Context, id uint, memberIDs []uint) error
	Delete(ctx context.Context, id uint) error
	RecountMembers(ctx context.Context, id uint) error
	RecountTasks(ctx context.Context, id uint) error
}

type boardRepository struct {
	db *gorm.DB
}

func membersByID(db *gorm.DB) *gorm.DB {
	return db.Order("users.id")
}

// Create inserts the board and its membership rows, then sets member_count
// in storage. Members on the board value are ignored; memberIDs is
// authoritative. Reload the board to observe the counters.
func (r *boardRepository) Create(ctx context.Context, board *model.Board, memberIDs []uint) error {
	db := r.db.WithContext(ctx)
	board.Members = nil
	if err := db.Omit("Members", "Tasks", "Owner").Create(board).Error; err != nil {
		return err
	}
	if err := insertMembers(db, board.ID, memberIDs); err != nil {
		return err
	}
	return recountMembers(db, board.ID)
}

func insertMembers(db *gorm.DB, boardID uint, memberIDs []uint) error {
	ids := model.UniqueIDs(memberIDs)
	if len(ids) == 0 {
		return nil
	}
	rows := make([]model.BoardMember, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.BoardMember{BoardID: boardID, UserID: id})
	}
	return db.Create(&rows).Error
}

// FindByID finds a board with its owner and members loaded.
func (r *boardRepository) FindByID(ctx context.Context, id uint) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).Preload("Owner").Preload("Members", membersByID).First(&board, id).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

// FindByIDForUpdate locks the board row for the rest of the transaction and
// returns it with members loaded. Drivers without row locks ignore the clause.
func (r *boardRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Board, error) {
	var locked model.Board
	if err := r.db.WithContext(ctx).Clauses(forUpdate).Select("id").First(&locked, id).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindDetail loads members and tasks with their assignee and reviewer.
func (r *boardRepository) FindDetail(ctx context.Context, id uint) (*model.Board, error) {
	var board model.Board
	err := r.db.WithContext(ctx).
		Preload("Members", membersByID).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("tasks.id") }).
		Preload("Tasks.Assignee").
		Preload("Tasks.Reviewer").
		First(&board, id).Error
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// ListForUser returns boards the user owns or belongs to, ordered by id.
func (r *boardRepository) ListForUser(ctx context.Context, userID uint) ([]model.Board, error) {
	db := r.db.WithContext(ctx)
	memberOf := db.Model(&model.BoardMember{}).Select("board_id").Where("user_id = ?", userID)

	var boards []model.Board
	err := db.Where("owner_id = ? OR id IN (?)", userID, memberOf).Order("id").Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *boardRepository) UpdateTitle(ctx context.Context, id uint, title string) error {
	return r.db.WithContext(ctx).Model(&model.Board{}).Where("id = ?", id).Update("title", title).Error
}

// ReplaceMembers swaps the whole member set and recounts member_count.
func (r *boardRepository) ReplaceMembers(ctx context.Context, id uint, memberIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("board_id = ?", id).Delete(&model.BoardMember{}).Error; err != nil {
		return err
	}
	if err := insertMembers(db, id, memberIDs); err != nil {
		return err
	}
	return recountMembers(db, id)
}

// Delete removes the board with its tasks, comments and memberships.
func (r *boardRepository) Delete(ctx context.Context, id uint) error {
	return deleteBoardCascade(r.db.WithContext(ctx), id)
}

func (r *boardRepository) RecountMembers(ctx context.Context, id uint) error {
	return recountMembers(r.db.WithContext(ctx), id)
}

func (r *boardRepository) RecountTasks(ctx context.Context, id uint) error {
	return recountTasks(r.db.WithContext(ctx), id)
}
