package repository

import (
	"context"

	"gorm.io/gorm"

	"kanban/internal/model"
)

// TaskRepository defines task persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	Update(ctx context.Context, task *model.Task, columns []string) error
	Delete(ctx context.Context, id uint) error
	ListByAssignee(ctx context.Context, userID uint) ([]model.Task, error)
	ListByReviewer(ctx context.Context, userID uint) ([]model.Task, error)
	ListByBoard(ctx context.Context, boardID uint) ([]model.Task, error)
	RecountComments(ctx context.Context, id uint) error
}

type taskRepository struct {
	db *gorm.DB
}

func withPeople(db *gorm.DB) *gorm.DB {
	return db.Preload("Assignee").Preload("Reviewer")
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit("Assignee", "Reviewer", "CreatedBy", "Comments").Create(task).Error
}

// FindByID finds a task with assignee and reviewer loaded.
func (r *taskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := withPeople(r.db.WithContext(ctx)).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Update writes the named columns from task, including zero and nil values.
func (r *taskRepository) Update(ctx context.Context, task *model.Task, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(task).Select(columns).Updates(task).Error
}

// Delete removes the task and its comments.
func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Task{}, id).Error
}

func (r *taskRepository) list(ctx context.Context, query string, arg uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := withPeople(r.db.WithContext(ctx)).Where(query, arg).Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListByAssignee(ctx context.Context, userID uint) ([]model.Task, error) {
	return r.list(ctx, "assignee_id = ?", userID)
}

func (r *taskRepository) ListByReviewer(ctx context.Context, userID uint) ([]model.Task, error) {
	return r.list(ctx, "reviewer_id = ?", userID)
}

func (r *taskRepository) ListByBoard(ctx context.Context, boardID uint) ([]model.Task, error) {
	return r.list(ctx, "board_id = ?", boardID)
}

func (r *taskRepository) RecountComments(ctx context.Context, id uint) error {
	return recountComments(r.db.WithContext(ctx), id)
}
