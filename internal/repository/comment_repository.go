package repository

import (
	"context"

	"gorm.io/gorm"

	"kanban/internal/model"
)

// CommentRepository defines comment persistence operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByIDAndTask(ctx context.Context, id, taskID uint) (*model.Comment, error)
	ListByTask(ctx context.Context, taskID uint) ([]model.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Omit("Author").Create(comment).Error
}

// FindByIDAndTask only matches a comment that belongs to taskID.
func (r *commentRepository) FindByIDAndTask(ctx context.Context, id, taskID uint) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		Where("id = ? AND task_id = ?", id, taskID).
		First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTask returns comments newest first.
func (r *commentRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Comment{}, id).Error
}
