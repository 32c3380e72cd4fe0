package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kanban/internal/errors"
)

func TestBoardService_CreateMakesOwnerMember(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u@x.com")

	b, err := e.boards.Create(e.ctx, u.ID, "Sprint 1", nil)
	require.NoError(t, err)

	assert.Equal(t, "Sprint 1", b.Title)
	assert.Equal(t, u.ID, b.OwnerID)
	assert.Equal(t, []uint{u.ID}, b.MemberIDs())
	assert.Equal(t, 1, b.MemberCount)
	assert.Equal(t, 0, b.TicketCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.BoardsCreatedTotal))
}

func TestBoardService_CreateCollapsesDuplicates(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	m := e.user(t, "m@x.com")

	b, err := e.boards.Create(e.ctx, owner.ID, "Board", []uint{m.ID, m.ID, owner.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, b.MemberCount)
}

func TestBoardService_CreateRejectsUnknownMember(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")

	_, err := e.boards.Create(e.ctx, owner.ID, "Board", []uint{owner.ID, 404})
	assert.ErrorIs(t, err, errors.ErrUnknownMember)

	boards, err := e.boards.List(e.ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestBoardService_CreateRejectsBlankTitle(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")

	_, err := e.boards.Create(e.ctx, owner.ID, "  ", nil)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestBoardService_GetRequiresMembership(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	member := e.user(t, "m@x.com")
	outsider := e.user(t, "x@x.com")
	b := e.board(t, owner, member)
	e.task(t, member, b, "", "")

	got, err := e.boards.Get(e.ctx, member.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tasks, 1)
	assert.Len(t, got.Members, 2)

	_, err = e.boards.Get(e.ctx, outsider.ID, b.ID)
	assert.True(t, errors.IsForbidden(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.AuthorizationDenied.WithLabelValues("board:read")))

	_, err = e.boards.Get(e.ctx, owner.ID, 9999)
	assert.ErrorIs(t, err, errors.ErrBoardNotFound)
}

func TestBoardService_UpdateReplacesMembersAndKeepsOwner(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	a := e.user(t, "a@x.com")
	b := e.user(t, "b@x.com")
	board := e.board(t, owner, a)

	updated, err := e.boards.Update(e.ctx, a.ID, board.ID, BoardUpdate{
		Title:   ptr("Renamed"),
		Members: &[]uint{b.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, []uint{owner.ID, b.ID}, updated.MemberIDs())
	assert.Equal(t, 2, updated.MemberCount)
	require.NotNil(t, updated.Owner)
	assert.Equal(t, "o@x.com", updated.Owner.Email)

	// a is no longer a member
	_, err = e.boards.Update(e.ctx, a.ID, board.ID, BoardUpdate{Title: ptr("again")})
	assert.True(t, errors.IsForbidden(err))
}

func TestBoardService_UpdateTitleOnlyLeavesMembers(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	a := e.user(t, "a@x.com")
	board := e.board(t, owner, a)

	updated, err := e.boards.Update(e.ctx, owner.ID, board.ID, BoardUpdate{Title: ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MemberCount)
}

func TestBoardService_UpdateUnknownMemberIsAtomic(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	a := e.user(t, "a@x.com")
	board := e.board(t, owner, a)

	_, err := e.boards.Update(e.ctx, owner.ID, board.ID, BoardUpdate{
		Title:   ptr("Should not stick"),
		Members: &[]uint{404},
	})
	assert.ErrorIs(t, err, errors.ErrUnknownMember)

	got := e.reloadBoard(t, board.ID)
	assert.Equal(t, "Board", got.Title)
	assert.Equal(t, []uint{owner.ID, a.ID}, got.MemberIDs())
	assert.Equal(t, 2, got.MemberCount)
}

func TestBoardService_DeleteOwnerOnly(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	member := e.user(t, "m@x.com")
	board := e.board(t, owner, member)
	task := e.task(t, member, board, "", "")
	_, err := e.comments.Create(e.ctx, member.ID, task.ID, "hello")
	require.NoError(t, err)

	err = e.boards.Delete(e.ctx, member.ID, board.ID)
	assert.True(t, errors.IsForbidden(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.AuthorizationDenied.WithLabelValues("board:delete")))

	require.NoError(t, e.boards.Delete(e.ctx, owner.ID, board.ID))

	_, err = e.boards.Get(e.ctx, owner.ID, board.ID)
	assert.ErrorIs(t, err, errors.ErrBoardNotFound)
	_, err = e.comments.List(e.ctx, owner.ID, task.ID)
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)

	assert.ErrorIs(t, e.boards.Delete(e.ctx, owner.ID, board.ID), errors.ErrBoardNotFound)
}

func TestBoardService_List(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "o@x.com")
	member := e.user(t, "m@x.com")
	outsider := e.user(t, "x@x.com")
	e.board(t, owner, member)
	e.board(t, owner)

	boards, err := e.boards.List(e.ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, boards, 2)

	boards, err = e.boards.List(e.ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, boards, 1)

	boards, err = e.boards.List(e.ctx, outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestBoardService_UpdateLogsNewMemberSet(t *testing.T) {
	e := newEnv(t)
	core, logs := observer.New(zapcore.InfoLevel)
	boards := NewBoardService(e.store, zap.New(core), e.metrics)

	owner := e.user(t, "o@x.com")
	a := e.user(t, "a@x.com")
	board := e.board(t, owner)

	_, err := boards.Update(e.ctx, owner.ID, board.ID, BoardUpdate{Members: &[]uint{a.ID}})
	require.NoError(t, err)

	entries := logs.FilterMessage("board updated").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, true, fields["members_replaced"])
	assert.Equal(t, []interface{}{owner.ID, a.ID}, fields["member_ids"])
}
