package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kanban/internal/errors"
	"kanban/internal/model"
)

func TestUserService_FindByEmail(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "ada@example.com")

	found, err := e.users.FindByEmail(e.ctx, "ADA@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = e.users.FindByEmail(e.ctx, "ghost@example.com")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestUserService_DeleteUserRecountsBoards(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	leaver := e.user(t, "l@x.com")
	board := e.board(t, owner, leaver)
	e.task(t, leaver, board, model.TaskStatusToDo, model.TaskPriorityHigh)

	require.NoError(t, e.users.DeleteUser(e.ctx, leaver.ID))

	got := e.reloadBoard(t, board.ID)
	assert.Equal(t, 1, got.MemberCount)
	assert.Equal(t, model.TaskTally{}, boardTally(got))

	_, err := e.users.GetUser(e.ctx, leaver.ID)
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
	assert.ErrorIs(t, e.users.DeleteUser(e.ctx, leaver.ID), errors.ErrUserNotFound)
}

func TestUserService_GetUserWrapsStorageErrors(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, uint(1)).Return(nil, gorm.ErrInvalidDB)

	svc := NewUserService(repo, nil, nil)
	_, err := svc.GetUser(context.Background(), 1)

	assert.ErrorIs(t, err, gorm.ErrInvalidDB)
	assert.NotErrorIs(t, err, errors.ErrUserNotFound)
	repo.AssertExpectations(t)
}
