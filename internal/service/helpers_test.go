package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/repository"
	"kanban/internal/testdb"
)

// env wires the services over a private in-memory database.
type env struct {
	ctx      context.Context
	store    repository.Store
	metrics  *metrics.Metrics
	users    UserService
	boards   BoardService
	tasks    TaskService
	comments CommentService
}

func newEnv(t testing.TB) *env {
	t.Helper()
	store := repository.NewStore(testdb.New(t))
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), nil)
	return &env{
		ctx:      context.Background(),
		store:    store,
		metrics:  m,
		users:    NewUserService(store.Users(), nil, nil),
		boards:   NewBoardService(store, nil, m),
		tasks:    NewTaskService(store, nil, m),
		comments: NewCommentService(store, nil, m),
	}
}

func (e *env) user(t testing.TB, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, FirstName: "Test", LastName: "User", PasswordHash: "x"}
	require.NoError(t, e.store.Users().Create(e.ctx, u))
	return u
}

func (e *env) board(t testing.TB, owner *model.User, members ...*model.User) *model.Board {
	t.Helper()
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	b, err := e.boards.Create(e.ctx, owner.ID, "Board", ids)
	require.NoError(t, err)
	return b
}

func (e *env) task(t testing.TB, actor *model.User, b *model.Board, status model.TaskStatus, prio model.TaskPriority) *model.Task {
	t.Helper()
	task, err := e.tasks.Create(e.ctx, actor.ID, TaskInput{BoardID: b.ID, Title: "Task", Status: status, Priority: prio})
	require.NoError(t, err)
	return task
}

func (e *env) reloadBoard(t testing.TB, id uint) *model.Board {
	t.Helper()
	b, err := e.store.Boards().FindByID(e.ctx, id)
	require.NoError(t, err)
	return b
}

// liveTally recounts a board's tasks in memory.
func (e *env) liveTally(t testing.TB, boardID uint) model.TaskTally {
	t.Helper()
	tasks, err := e.store.Tasks().ListByBoard(e.ctx, boardID)
	require.NoError(t, err)

	tally := model.TaskTally{Tickets: len(tasks)}
	for _, task := range tasks {
		if task.Status == model.TaskStatusToDo {
			tally.ToDo++
		}
		if task.Priority == model.TaskPriorityHigh {
			tally.HighPriority++
		}
	}
	return tally
}

func boardTally(b *model.Board) model.TaskTally {
	return model.TaskTally{Tickets: b.TicketCount, ToDo: b.TasksToDoCount, HighPriority: b.TasksHighPrioCount}
}

func ptr[T any](v T) *T { return &v }
