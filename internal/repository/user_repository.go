package repository

import (
	"context"

	"gorm.io/gorm"

	"kanban/internal/model"
)

// UserRepository defines persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.User, error)
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches case-insensitively.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", model.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users that exist among ids, ordered by id.
func (r *userRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	ids = model.UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes a user and applies the reference policies: owned boards and
// created tasks are deleted, memberships and authored comments are removed,
// assignee and reviewer references are cleared. Every board and task whose
// source collections changed is recounted.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model.User{}, id).Error; err != nil {
			return err
		}

		var owned []uint
		if err := tx.Model(&model.Board{}).Where("owner_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		for _, boardID := range owned {
			if err := deleteBoardCascade(tx, boardID); err != nil {
				return err
			}
		}

		var memberOf []uint
		if err := tx.Model(&model.BoardMember{}).Where("user_id = ?", id).Pluck("board_id", &memberOf).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.BoardMember{}).Error; err != nil {
			return err
		}

		var created []model.Task
		if err := tx.Select("id", "board_id").Where("created_by_id = ?", id).Find(&created).Error; err != nil {
			return err
		}
		boardsToRecount := make([]uint, 0, len(created))
		for _, t := range created {
			if err := tx.Where("task_id = ?", t.ID).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Task{}, t.ID).Error; err != nil {
				return err
			}
			boardsToRecount = append(boardsToRecount, t.BoardID)
		}

		if err := tx.Model(&model.Task{}).Where("assignee_id = ?", id).Update("assignee_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Task{}).Where("reviewer_id = ?", id).Update("reviewer_id", nil).Error; err != nil {
			return err
		}

		var commented []uint
		if err := tx.Model(&model.Comment{}).Where("author_id = ?", id).Pluck("task_id", &commented).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&model.User{}, id).Error; err != nil {
			return err
		}

		for _, boardID := range model.UniqueIDs(memberOf) {
			if err := recountMembers(tx, boardID); err != nil {
				return err
			}
		}
		for _, boardID := range model.UniqueIDs(boardsToRecount) {
			if err := recountTasks(tx, boardID); err != nil {
				return err
			}
		}
		for _, taskID := range model.UniqueIDs(commented) {
			if err := recountComments(tx, taskID); err != nil {
				return err
			}
		}
		return nil
	})
}
