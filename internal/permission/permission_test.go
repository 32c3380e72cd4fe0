package permission

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/errors"
	"kanban/internal/model"
)

const (
	ownerID     uint = 1
	memberID    uint = 2
	creatorID   uint = 3 // member who created the task
	authorID    uint = 4 // member who wrote the comment
	outsiderID  uint = 9
	loneOwnerID uint = 7 // owns a board without being in its member list
)

func boardOf(owner uint, members ...uint) *model.Board {
	b := &model.Board{OwnerID: owner}
	for _, id := range members {
		b.Members = append(b.Members, model.User{ID: id})
	}
	return b
}

func subject() Subject {
	return Subject{
		Entity:          "comment",
		EntityID:        42,
		Board:           boardOf(ownerID, ownerID, memberID, creatorID, authorID),
		TaskCreatorID:   creatorID,
		CommentAuthorID: authorID,
	}
}

func TestAllowed_Matrix(t *testing.T) {
	tests := []struct {
		action  Action
		allowed []uint
		denied  []uint
	}{
		{BoardRead, []uint{ownerID, memberID, creatorID}, []uint{outsiderID, 0}},
		{BoardUpdate, []uint{ownerID, memberID}, []uint{outsiderID}},
		{BoardDelete, []uint{ownerID}, []uint{memberID, creatorID, outsiderID}},
		{TaskCreate, []uint{ownerID, memberID}, []uint{outsiderID}},
		{TaskUpdate, []uint{ownerID, memberID, creatorID}, []uint{outsiderID}},
		{TaskDelete, []uint{ownerID, creatorID}, []uint{memberID, authorID, outsiderID}},
		{CommentRead, []uint{ownerID, memberID}, []uint{outsiderID}},
		{CommentCreate, []uint{ownerID, authorID}, []uint{outsiderID}},
		{CommentDelete, []uint{authorID}, []uint{ownerID, memberID, creatorID, outsiderID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			for _, id := range tt.allowed {
				assert.True(t, Allowed(id, tt.action, subject()), "user %d should be allowed", id)
			}
			for _, id := range tt.denied {
				assert.False(t, Allowed(id, tt.action, subject()), "user %d should be denied", id)
			}
		})
	}
}

func TestAllowed_OwnerOutsideMemberList(t *testing.T) {
	s := Subject{Board: boardOf(loneOwnerID, memberID)}

	assert.True(t, Allowed(loneOwnerID, BoardRead, s))
	assert.True(t, Allowed(loneOwnerID, TaskCreate, s))
	assert.True(t, Allowed(loneOwnerID, TaskDelete, s))
	assert.False(t, Allowed(loneOwnerID, TaskUpdate, s))
}

func TestAllowed_MissingBoardDeniesBoardRules(t *testing.T) {
	s := Subject{Entity: "comment", CommentAuthorID: authorID}

	assert.False(t, Allowed(ownerID, BoardRead, s))
	assert.False(t, Allowed(ownerID, TaskDelete, s))
	assert.True(t, Allowed(authorID, CommentDelete, s))
}

func TestAllowed_UnknownAction(t *testing.T) {
	assert.False(t, Allowed(ownerID, Action("board:archive"), subject()))
}

func TestAuthorize_ReturnsForbiddenError(t *testing.T) {
	err := Authorize(outsiderID, CommentDelete, subject())
	require.Error(t, err)

	var fe *errors.ForbiddenError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "comment:delete", fe.Action)
	assert.Equal(t, "comment", fe.Entity)
	assert.Equal(t, uint(42), fe.EntityID)

	assert.NoError(t, Authorize(authorID, CommentDelete, subject()))
}

func TestActions_CoversEveryRule(t *testing.T) {
	assert.Len(t, Actions(), 9)
	assert.Equal(t, BoardDelete, Actions()[0])
}

func TestSubjectBuilders(t *testing.T) {
	board := &model.Board{ID: 5, OwnerID: ownerID, Members: []model.User{{ID: ownerID}, {ID: memberID}}}
	task := &model.Task{ID: 6, BoardID: 5, CreatedByID: memberID}
	comment := &model.Comment{ID: 7, TaskID: 6, AuthorID: memberID}

	bs := ForBoard(board)
	assert.Equal(t, "board", bs.Entity)
	assert.Equal(t, uint(5), bs.EntityID)
	assert.Same(t, board, bs.Board)

	ts := ForTask(board, task)
	assert.Equal(t, "task", ts.Entity)
	assert.Equal(t, memberID, ts.TaskCreatorID)

	cs := ForComment(board, task, comment)
	assert.Equal(t, "comment", cs.Entity)
	assert.Equal(t, uint(7), cs.EntityID)
	assert.Equal(t, memberID, cs.CommentAuthorID)
}

func TestProperty_OutsidersAreAlwaysDenied(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("a user outside owner and members is denied every action", prop.ForAll(
		func(owner uint, members []uint, actor uint) bool {
			s := Subject{Board: boardOf(owner, members...)}
			if actor == owner {
				return true
			}
			for _, m := range members {
				if m == actor {
					return true
				}
			}
			for _, a := range Actions() {
				if Allowed(actor, a, s) {
					return false
				}
			}
			return true
		},
		gen.UIntRange(1, 20),
		gen.SliceOf(gen.UIntRange(1, 20)),
		gen.UIntRange(1, 20),
	))

	properties.Property("only the comment author may delete a comment", prop.ForAll(
		func(owner, author, actor uint) bool {
			s := Subject{Board: boardOf(owner, owner, author, actor), CommentAuthorID: author}
			return Allowed(actor, CommentDelete, s) == (actor == author)
		},
		gen.UIntRange(1, 10),
		gen.UIntRange(1, 10),
		gen.UIntRange(1, 10),
	))

	properties.Property("task delete is creator or owner", prop.ForAll(
		func(owner, creator, actor uint) bool {
			s := Subject{Board: boardOf(owner, owner, creator, actor), TaskCreatorID: creator}
			return Allowed(actor, TaskDelete, s) == (actor == creator || actor == owner)
		},
		gen.UIntRange(1, 10),
		gen.UIntRange(1, 10),
		gen.UIntRange(1, 10),
	))

	properties.TestingRun(t)
}
