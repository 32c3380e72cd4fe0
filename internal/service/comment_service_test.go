package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/errors"
)

func TestCommentService_CreateListAndCount(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	m := e.user(t, "m@x.com")
	board := e.board(t, owner, m)
	task := e.task(t, m, board, "", "")

	first, err := e.comments.Create(e.ctx, m.ID, task.ID, "  first  ")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	require.NotNil(t, first.Author)
	assert.Equal(t, m.ID, first.Author.ID)
	_, err = e.comments.Create(e.ctx, owner.ID, task.ID, "second")
	require.NoError(t, err)

	list, err := e.comments.List(e.ctx, owner.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Content)
	assert.Equal(t, "first", list[1].Content)

	reloaded, err := e.store.Tasks().FindByID(e.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.CommentsCount)
}

func TestCommentService_Guards(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	outsider := e.user(t, "x@x.com")
	board := e.board(t, owner)
	task := e.task(t, owner, board, "", "")

	_, err := e.comments.Create(e.ctx, owner.ID, task.ID, "   ")
	assert.ErrorIs(t, err, errors.ErrEmptyContent)

	_, err = e.comments.Create(e.ctx, outsider.ID, task.ID, "hi")
	assert.True(t, errors.IsForbidden(err))

	_, err = e.comments.List(e.ctx, outsider.ID, task.ID)
	assert.True(t, errors.IsForbidden(err))

	_, err = e.comments.Create(e.ctx, owner.ID, 9999, "hi")
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestCommentService_DeleteAuthorOnly(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	author := e.user(t, "a@x.com")
	board := e.board(t, owner, author)
	task := e.task(t, owner, board, "", "")
	other := e.task(t, owner, board, "", "")

	c, err := e.comments.Create(e.ctx, author.ID, task.ID, "mine")
	require.NoError(t, err)

	// no owner override
	err = e.comments.Delete(e.ctx, owner.ID, task.ID, c.ID)
	assert.True(t, errors.IsForbidden(err))

	// comment must belong to the task in the path
	err = e.comments.Delete(e.ctx, author.ID, other.ID, c.ID)
	assert.ErrorIs(t, err, errors.ErrCommentNotFound)

	require.NoError(t, e.comments.Delete(e.ctx, author.ID, task.ID, c.ID))

	reloaded, err := e.store.Tasks().FindByID(e.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CommentsCount)

	assert.ErrorIs(t, e.comments.Delete(e.ctx, author.ID, task.ID, c.ID), errors.ErrCommentNotFound)
}
