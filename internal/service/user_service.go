package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kanban/internal/cache"
	"kanban/internal/errors"
	"kanban/internal/model"
	"kanban/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes user lookups and removal.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type userService struct {
	repo   repository.UserRepository
	cache  *cache.Client
	logger *zap.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{repo: repo, cache: cache, logger: logger}
}

func (s *userService) idKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) emailKey(email string) string {
	return "user:email:" + model.NormalizeEmail(email)
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.idKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrUserNotFound, "find user")
	}

	_ = s.cache.SetJSON(ctx, s.idKey(id), user, userCacheTTL)
	return user, nil
}

// FindByEmail matches case-insensitively. Misses are not cached.
func (s *userService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.emailKey(email), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, errors.ErrUserNotFound, "find user by email")
	}

	_ = s.cache.SetJSON(ctx, s.emailKey(email), user, userCacheTTL)
	return user, nil
}

// DeleteUser removes the user with the storage reference policies applied.
func (s *userService) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, errors.ErrUserNotFound, "find user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, errors.ErrUserNotFound, "delete user")
	}

	_ = s.cache.Delete(ctx, s.idKey(id))
	_ = s.cache.Delete(ctx, s.emailKey(user.Email))
	s.logger.Info("user deleted", zap.Uint("user_id", id))
	return nil
}
