// Package permission holds the authorization rules for boards, tasks and
// comments. Rules are pure functions over an already loaded subject; they
// never touch storage.
package permission

import (
	"sort"

	"kanban/internal/errors"
	"kanban/internal/model"
)

// Action names an operation guarded by a rule.
type Action string

const (
	BoardRead     Action = "board:read"
	BoardUpdate   Action = "board:update"
	BoardDelete   Action = "board:delete"
	TaskCreate    Action = "task:create"
	TaskUpdate    Action = "task:update"
	TaskDelete    Action = "task:delete"
	CommentRead   Action = "comment:read"
	CommentCreate Action = "comment:create"
	CommentDelete Action = "comment:delete"
)

// Subject is the entity graph a rule is evaluated against.
type Subject struct {
	Entity   string
	EntityID uint

	// Board must have its members loaded.
	Board *model.Board

	// Zero when the subject is not a task or comment.
	TaskCreatorID   uint
	CommentAuthorID uint
}

// Rule decides whether actor may act on s.
type Rule func(actor uint, s Subject) bool

var rules = map[Action]Rule{
	BoardRead:     ownerOrMember,
	BoardUpdate:   ownerOrMember,
	BoardDelete:   owner,
	TaskCreate:    ownerOrMember,
	TaskUpdate:    member,
	TaskDelete:    taskCreatorOrOwner,
	CommentRead:   ownerOrMember,
	CommentCreate: ownerOrMember,
	CommentDelete: commentAuthor,
}

func owner(actor uint, s Subject) bool {
	return actor != 0 && s.Board != nil && s.Board.IsOwner(actor)
}

func member(actor uint, s Subject) bool {
	return actor != 0 && s.Board != nil && s.Board.HasMember(actor)
}

func ownerOrMember(actor uint, s Subject) bool {
	return owner(actor, s) || member(actor, s)
}

func taskCreatorOrOwner(actor uint, s Subject) bool {
	return (actor != 0 && actor == s.TaskCreatorID) || owner(actor, s)
}

func commentAuthor(actor uint, s Subject) bool {
	return actor != 0 && actor == s.CommentAuthorID
}

// Allowed evaluates the rule for action. Unknown actions are denied.
func Allowed(actor uint, action Action, s Subject) bool {
	rule, ok := rules[action]
	if !ok {
		return false
	}
	return rule(actor, s)
}

// Authorize returns a ForbiddenError when actor may not perform action on s.
func Authorize(actor uint, action Action, s Subject) error {
	if Allowed(actor, action, s) {
		return nil
	}
	return &errors.ForbiddenError{
		Action:   string(action),
		Entity:   s.Entity,
		EntityID: s.EntityID,
	}
}

// Actions lists every action that has a rule, sorted by name.
func Actions() []Action {
	out := make([]Action, 0, len(rules))
	for a := range rules {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForBoard builds a subject for a board with its members loaded.
func ForBoard(b *model.Board) Subject {
	return Subject{
		Entity:   "board",
		EntityID: b.ID,
		Board:    b,
	}
}

// ForTask builds a subject for a task; board must have its members loaded.
func ForTask(b *model.Board, t *model.Task) Subject {
	s := ForBoard(b)
	s.Entity = "task"
	s.EntityID = t.ID
	s.TaskCreatorID = t.CreatedByID
	return s
}

// ForComment builds a subject for a comment on a task of board b.
func ForComment(b *model.Board, t *model.Task, c *model.Comment) Subject {
	s := ForTask(b, t)
	s.Entity = "comment"
	s.EntityID = c.ID
	s.CommentAuthorID = c.AuthorID
	return s
}
