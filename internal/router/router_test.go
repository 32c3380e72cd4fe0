package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/auth"
	"kanban/internal/errors"
	"kanban/internal/handler"
	"kanban/internal/metrics"
	"kanban/internal/repository"
	"kanban/internal/service"
	"kanban/internal/testdb"
)

type testAPI struct {
	t     *testing.T
	e     *echo.Echo
	users service.UserService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := repository.NewStore(testdb.New(t))
	jwtService := auth.NewJWTService("test-secret", 15*time.Minute, time.Hour)
	tokens := auth.NewMemoryTokenStore()
	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry, nil)
	users := service.NewUserService(store.Users(), nil, nil)

	e := echo.New()
	Register(e, Options{
		Metrics:    m,
		Gatherer:   registry,
		JWTService: jwtService,
		TokenStore: tokens,
		Users:      users,
	}, Handlers{
		Auth:    handler.NewAuthHandler(service.NewAuthService(store.Users(), jwtService, tokens, nil, m)),
		User:    handler.NewUserHandler(users),
		Board:   handler.NewBoardHandler(service.NewBoardService(store, nil, m)),
		Task:    handler.NewTaskHandler(service.NewTaskService(store, nil, m)),
		Comment: handler.NewCommentHandler(service.NewCommentService(store, nil, m)),
	})
	return &testAPI{t: t, e: e, users: users}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) register(email, fullname string) handler.AuthResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/registration", "", map[string]string{
		"email":             email,
		"password":          "secret1",
		"repeated_password": "secret1",
		"fullname":          fullname,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.AuthResponse](a.t, rec)
}

func (a *testAPI) createBoard(token, title string, members ...uint) handler.BoardSummary {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/boards", token, map[string]any{"title": title, "members": members})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.BoardSummary](a.t, rec)
}

func (a *testAPI) createTask(token string, body map[string]any) handler.TaskResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/tasks", token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.TaskResponse](a.t, rec)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	ada := api.register("Ada@Example.com", "Ada King Lovelace")
	assert.Equal(t, "ada@example.com", ada.Email)
	assert.Equal(t, "Ada King Lovelace", ada.Fullname)
	assert.NotEmpty(t, ada.Token)
	assert.NotEmpty(t, ada.RefreshToken)
	assert.NotZero(t, ada.UserID)

	t.Run("password mismatch", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/registration", "", map[string]string{
			"email": "b@x.com", "password": "a", "repeated_password": "b", "fullname": "B",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PASSWORD_MISMATCH", decode[errors.ErrorResponse](t, rec).Code)
	})

	t.Run("duplicate email is case-insensitive", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/registration", "", map[string]string{
			"email": "ADA@example.com", "password": "x", "repeated_password": "x", "fullname": "Other",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "EMAIL_TAKEN", decode[errors.ErrorResponse](t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/registration", "", `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ada.UserID, decode[handler.AuthResponse](t, rec).UserID)

		rec = api.do(http.MethodPost, "/api/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh then logout revokes both tokens", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh_token": ada.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code)
		fresh := decode[handler.TokenResponse](t, rec).Token
		require.NotEmpty(t, fresh)

		rec = api.do(http.MethodPost, "/api/logout", fresh, map[string]string{"refresh_token": ada.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/boards", fresh, nil).Code)
		rec = api.do(http.MethodPost, "/api/token/refresh", "", map[string]string{"refresh_token": ada.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		// The original access token was not presented at logout.
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/boards", ada.Token, nil).Code)
	})

	t.Run("refresh token is not a bearer token", func(t *testing.T) {
		other := api.register("c@x.com", "C")
		rec := api.do(http.MethodGet, "/api/boards", other.RefreshToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/boards", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode[errors.ErrorResponse](t, rec).Code)

	rec = api.do(http.MethodGet, "/api/boards", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	api := newTestAPI(t)
	gone := api.register("gone@x.com", "Gus Gone")
	stays := api.register("stays@x.com", "Stan Stays")

	require.NoError(t, api.users.DeleteUser(context.Background(), gone.UserID))

	rec := api.do(http.MethodPost, "/api/boards", gone.Token, map[string]any{"title": "Orphan", "members": []uint{}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[errors.ErrorResponse](t, rec)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)
	assert.Equal(t, "user no longer exists", resp.Error)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/boards", stays.Token, nil).Code)
}

func TestBoardEndpoints(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@x.com", "Olive Owner")
	member := api.register("member@x.com", "Max Member")
	outsider := api.register("out@x.com", "Otto Outsider")

	board := api.createBoard(owner.Token, "Sprint 1", member.UserID)
	assert.Equal(t, owner.UserID, board.OwnerID)
	assert.Equal(t, 2, board.MemberCount)
	assert.Equal(t, 0, board.TicketCount)
	boardPath := "/api/boards/" + itoa(board.ID)

	t.Run("unknown member rejects create", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/boards", owner.Token, map[string]any{"title": "X", "members": []uint{9999}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list includes memberships and trailing slash", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/api/boards/", member.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		boards := decode[[]handler.BoardSummary](t, rec)
		require.Len(t, boards, 1)
		assert.Equal(t, board.ID, boards[0].ID)

		rec = api.do(http.MethodGet, "/api/boards", outsider.Token, nil)
		assert.Empty(t, decode[[]handler.BoardSummary](t, rec))
	})

	t.Run("get hides boards from outsiders", func(t *testing.T) {
		rec := api.do(http.MethodGet, boardPath, member.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		detail := decode[handler.BoardDetail](t, rec)
		assert.Len(t, detail.Members, 2)
		assert.Empty(t, detail.Tasks)

		rec = api.do(http.MethodGet, boardPath, outsider.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "board not found or access denied", decode[errors.ErrorResponse](t, rec).Error)

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/boards/424242", owner.Token, nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/boards/abc", owner.Token, nil).Code)
	})

	t.Run("patch", func(t *testing.T) {
		rec := api.do(http.MethodPatch, boardPath, outsider.Token, map[string]any{"title": "Mine"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = api.do(http.MethodPatch, boardPath, member.Token, map[string]any{"members": []uint{9999}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodPatch, boardPath, member.Token, map[string]any{
			"title":   "Sprint 2",
			"members": []uint{outsider.UserID},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		patched := decode[handler.BoardPatchResponse](t, rec)
		assert.Equal(t, "Sprint 2", patched.Title)
		require.NotNil(t, patched.OwnerData)
		assert.Equal(t, "Olive Owner", patched.OwnerData.Fullname)

		ids := make([]uint, 0, len(patched.MembersData))
		for _, m := range patched.MembersData {
			ids = append(ids, m.ID)
		}
		assert.ElementsMatch(t, []uint{owner.UserID, outsider.UserID}, ids)
	})

	t.Run("delete is owner only", func(t *testing.T) {
		rec := api.do(http.MethodDelete, boardPath, outsider.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(http.MethodDelete, boardPath, owner.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, boardPath, owner.Token, nil).Code)
	})
}

func TestTaskEndpoints(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@x.com", "Olive Owner")
	member := api.register("member@x.com", "Max Member")
	outsider := api.register("out@x.com", "Otto Outsider")
	board := api.createBoard(owner.Token, "Board", member.UserID)

	t.Run("validation", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/tasks", owner.Token, map[string]any{"title": "no board"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodPost, "/api/tasks", owner.Token, map[string]any{"board": board.ID, "title": "t", "status": "later"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodPost, "/api/tasks", owner.Token, map[string]any{"board": board.ID, "title": "t", "due_date": "tomorrow"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodPost, "/api/tasks", owner.Token, map[string]any{"board": 424242, "title": "t"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = api.do(http.MethodPost, "/api/tasks", outsider.Token, map[string]any{"board": board.ID, "title": "t"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	task := api.createTask(member.Token, map[string]any{
		"board":       board.ID,
		"title":       "Ship it",
		"description": "all of it",
		"status":      "to-do",
		"priority":    "high",
		"assignee_id": member.UserID,
		"reviewer_id": owner.UserID,
		"due_date":    "2025-03-01",
	})
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "Max Member", task.Assignee.Fullname)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2025-03-01", *task.DueDate)
	taskPath := "/api/tasks/" + itoa(task.ID)

	t.Run("board counters follow tasks", func(t *testing.T) {
		boards := decode[[]handler.BoardSummary](t, api.do(http.MethodGet, "/api/boards", owner.Token, nil))
		require.Len(t, boards, 1)
		assert.Equal(t, 1, boards[0].TicketCount)
		assert.Equal(t, 1, boards[0].TasksToDoCount)
		assert.Equal(t, 1, boards[0].TasksHighPrioCount)
	})

	t.Run("assigned and reviewing", func(t *testing.T) {
		assigned := decode[[]handler.TaskResponse](t, api.do(http.MethodGet, "/api/tasks/assigned-to-me", member.Token, nil))
		require.Len(t, assigned, 1)
		assert.Equal(t, task.ID, assigned[0].ID)

		reviewing := decode[[]handler.TaskResponse](t, api.do(http.MethodGet, "/api/tasks/reviewing", owner.Token, nil))
		require.Len(t, reviewing, 1)
		assert.Empty(t, decode[[]handler.TaskResponse](t, api.do(http.MethodGet, "/api/tasks/reviewing", member.Token, nil)))
	})

	t.Run("patch distinguishes null from absent", func(t *testing.T) {
		rec := api.do(http.MethodPatch, taskPath, owner.Token, `{"status":"done","assignee_id":null}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		patched := decode[handler.TaskResponse](t, rec)
		assert.Equal(t, "done", patched.Status)
		assert.Nil(t, patched.Assignee)
		require.NotNil(t, patched.Reviewer)
		require.NotNil(t, patched.DueDate)

		rec = api.do(http.MethodPatch, taskPath, owner.Token, `{"due_date":null}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decode[handler.TaskResponse](t, rec).DueDate)

		boards := decode[[]handler.BoardSummary](t, api.do(http.MethodGet, "/api/boards", owner.Token, nil))
		assert.Equal(t, 0, boards[0].TasksToDoCount)

		rec = api.do(http.MethodPatch, taskPath, outsider.Token, `{"title":"x"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(http.MethodPatch, taskPath, owner.Token, `{"assignee_id":9999}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodPatch, "/api/tasks/424242", owner.Token, `{}`).Code)
	})

	t.Run("delete returns the prior representation", func(t *testing.T) {
		other := api.createTask(owner.Token, map[string]any{"board": board.ID, "title": "Owner task"})
		rec := api.do(http.MethodDelete, "/api/tasks/"+itoa(other.ID), member.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(http.MethodDelete, taskPath, owner.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Ship it", decode[handler.TaskResponse](t, rec).Title)

		boards := decode[[]handler.BoardSummary](t, api.do(http.MethodGet, "/api/boards", owner.Token, nil))
		assert.Equal(t, 1, boards[0].TicketCount)
		assert.Equal(t, 0, boards[0].TasksHighPrioCount)
	})
}

func TestCommentEndpoints(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register("owner@x.com", "Olive Owner")
	member := api.register("member@x.com", "Max Member")
	outsider := api.register("out@x.com", "Otto Outsider")
	board := api.createBoard(owner.Token, "Board", member.UserID)
	task := api.createTask(owner.Token, map[string]any{"board": board.ID, "title": "t"})
	other := api.createTask(owner.Token, map[string]any{"board": board.ID, "title": "u"})
	commentsPath := "/api/tasks/" + itoa(task.ID) + "/comments"

	rec := api.do(http.MethodPost, commentsPath, member.Token, map[string]string{"content": "first"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[handler.CommentResponse](t, rec)
	assert.Equal(t, "Max Member", first.Author)

	rec = api.do(http.MethodPost, commentsPath, owner.Token, map[string]string{"content": "second"})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[handler.CommentResponse](t, rec)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, commentsPath, owner.Token, map[string]string{"content": "  "}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, commentsPath, outsider.Token, map[string]string{"content": "hi"}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, commentsPath, outsider.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/tasks/424242/comments", owner.Token, nil).Code)

	listed := decode[[]handler.CommentResponse](t, api.do(http.MethodGet, commentsPath, member.Token, nil))
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)
	assert.Equal(t, first.ID, listed[1].ID)

	firstPath := commentsPath + "/" + itoa(first.ID)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, firstPath, owner.Token, nil).Code)
	wrongTask := "/api/tasks/" + itoa(other.ID) + "/comments/" + itoa(first.ID)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, wrongTask, member.Token, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, firstPath, member.Token, nil).Code)

	detail := decode[handler.BoardDetail](t, api.do(http.MethodGet, "/api/boards/"+itoa(board.ID), owner.Token, nil))
	for _, tk := range detail.Tasks {
		if tk.ID == task.ID {
			assert.Equal(t, 1, tk.CommentsCount)
		}
	}
}

func TestEmailCheck(t *testing.T) {
	api := newTestAPI(t)
	ada := api.register("ada@x.com", "Ada Lovelace")

	rec := api.do(http.MethodGet, "/api/email-check?email=ADA@x.com", ada.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[handler.UserInfo](t, rec)
	assert.Equal(t, ada.UserID, info.ID)
	assert.Equal(t, "Ada Lovelace", info.Fullname)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/email-check", ada.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/email-check?email=none@x.com", ada.Token, nil).Code)
}

func TestOperationalEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	api.register("ada@x.com", "Ada")
	rec = api.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kanban_http_requests_total")
	assert.Contains(t, rec.Body.String(), "kanban_users_registered_total 1")
}
