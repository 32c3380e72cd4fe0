package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kanban/internal/model"
)

// Store groups the repositories that share one database handle. Inside
// WithTransaction every repository returned by the transactional Store runs
// on the same transaction.
type Store interface {
	Users() UserRepository
	Boards() BoardRepository
	Tasks() TaskRepository
	Comments() CommentRepository

	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository       { return &userRepository{db: s.db} }
func (s *gormStore) Boards() BoardRepository     { return &boardRepository{db: s.db} }
func (s *gormStore) Tasks() TaskRepository       { return &taskRepository{db: s.db} }
func (s *gormStore) Comments() CommentRepository { return &commentRepository{db: s.db} }

// WithTransaction executes fn within a database transaction. Returning an
// error from fn rolls back every write made through tx.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// recountMembers sets member_count to the number of membership rows.
func recountMembers(db *gorm.DB, boardID uint) error {
	var n int64
	if err := db.Model(&model.BoardMember{}).Where("board_id = ?", boardID).Count(&n).Error; err != nil {
		return err
	}
	return db.Model(&model.Board{}).Where("id = ?", boardID).Update("member_count", n).Error
}

// recountTasks recomputes the three task counters of a board in one query.
func recountTasks(db *gorm.DB, boardID uint) error {
	var tally model.TaskTally
	err := db.Raw(`SELECT COUNT(*) AS tickets,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS to_do,
		COALESCE(SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END), 0) AS high_priority
		FROM tasks WHERE board_id = ?`,
		model.TaskStatusToDo, model.TaskPriorityHigh, boardID).Scan(&tally).Error
	if err != nil {
		return err
	}
	return db.Model(&model.Board{}).Where("id = ?", boardID).Updates(map[string]any{
		"ticket_count":          tally.Tickets,
		"tasks_to_do_count":     tally.ToDo,
		"tasks_high_prio_count": tally.HighPriority,
	}).Error
}

// recountComments sets comments_count to the number of comments on the task.
func recountComments(db *gorm.DB, taskID uint) error {
	var n int64
	if err := db.Model(&model.Comment{}).Where("task_id = ?", taskID).Count(&n).Error; err != nil {
		return err
	}
	return db.Model(&model.Task{}).Where("id = ?", taskID).Update("comments_count", n).Error
}

// deleteBoardCascade removes a board with its comments, tasks and
// memberships, children first.
func deleteBoardCascade(db *gorm.DB, boardID uint) error {
	taskIDs := db.Model(&model.Task{}).Select("id").Where("board_id = ?", boardID)
	if err := db.Where("task_id IN (?)", taskIDs).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("board_id = ?", boardID).Delete(&model.Task{}).Error; err != nil {
		return err
	}
	if err := db.Where("board_id = ?", boardID).Delete(&model.BoardMember{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Board{}, boardID).Error
}
