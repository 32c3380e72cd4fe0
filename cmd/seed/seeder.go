package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"kanban/internal/errors"
	"kanban/internal/model"
	"kanban/internal/service"
)

// Fixture is the seed file layout. People are referenced by email.
type Fixture struct {
	Users  []SeedUser  `json:"users"`
	Boards []SeedBoard `json:"boards"`
}

type SeedUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

type SeedBoard struct {
	Title   string     `json:"title"`
	Owner   string     `json:"owner"`
	Members []string   `json:"members"`
	Tasks   []SeedTask `json:"tasks"`
}

type SeedTask struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	Assignee    string        `json:"assignee"`
	Reviewer    string        `json:"reviewer"`
	DueDate     string        `json:"due_date"`
	CreatedBy   string        `json:"created_by"`
	Comments    []SeedComment `json:"comments"`
}

type SeedComment struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Boards   int
	Tasks    int
	Comments int
}

// ParseFixture decodes a fixture and rejects unknown fields.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Seeder loads fixtures through the services so counters are maintained by
// the same code path as the API.
type Seeder struct {
	auth     service.AuthService
	users    service.UserService
	boards   service.BoardService
	tasks    service.TaskService
	comments service.CommentService
	logger   *zap.Logger
}

// Run is idempotent for users and boards: existing users are reused and a
// board is skipped when its owner already has one with the same title.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (Summary, error) {
	var sum Summary
	ids := make(map[string]uint, len(f.Users))

	for _, u := range f.Users {
		result, err := s.auth.Register(ctx, u.Email, u.Password, u.Password, u.Fullname)
		switch {
		case err == nil:
			ids[model.NormalizeEmail(u.Email)] = result.User.ID
			sum.Users++
		case errors.Is(err, errors.ErrEmailTaken):
			existing, err := s.users.FindByEmail(ctx, u.Email)
			if err != nil {
				return sum, fmt.Errorf("look up %s: %w", u.Email, err)
			}
			ids[model.NormalizeEmail(u.Email)] = existing.ID
			s.logger.Info("user exists, reusing", zap.String("email", existing.Email))
		default:
			return sum, fmt.Errorf("register %s: %w", u.Email, err)
		}
	}

	resolve := func(email string) (uint, error) {
		if email == "" {
			return 0, nil
		}
		if id, ok := ids[model.NormalizeEmail(email)]; ok {
			return id, nil
		}
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return 0, fmt.Errorf("resolve %s: %w", email, err)
		}
		ids[model.NormalizeEmail(email)] = u.ID
		return u.ID, nil
	}

	for _, b := range f.Boards {
		ownerID, err := resolve(b.Owner)
		if err != nil {
			return sum, err
		}
		if ownerID == 0 {
			return sum, fmt.Errorf("board %q has no owner", b.Title)
		}

		exists, err := s.hasBoard(ctx, ownerID, b.Title)
		if err != nil {
			return sum, err
		}
		if exists {
			s.logger.Info("board exists, skipping", zap.String("title", b.Title))
			continue
		}

		memberIDs := make([]uint, 0, len(b.Members))
		for _, email := range b.Members {
			id, err := resolve(email)
			if err != nil {
				return sum, err
			}
			memberIDs = append(memberIDs, id)
		}

		board, err := s.boards.Create(ctx, ownerID, b.Title, memberIDs)
		if err != nil {
			return sum, fmt.Errorf("create board %q: %w", b.Title, err)
		}
		sum.Boards++

		for _, t := range b.Tasks {
			n, err := s.seedTask(ctx, board.ID, ownerID, t, resolve)
			if err != nil {
				return sum, fmt.Errorf("board %q: %w", b.Title, err)
			}
			sum.Tasks++
			sum.Comments += n
		}
	}
	return sum, nil
}

func (s *Seeder) hasBoard(ctx context.Context, ownerID uint, title string) (bool, error) {
	boards, err := s.boards.List(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, b := range boards {
		if b.OwnerID == ownerID && b.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (s *Seeder) seedTask(ctx context.Context, boardID, ownerID uint, t SeedTask, resolve func(string) (uint, error)) (int, error) {
	creator := ownerID
	if t.CreatedBy != "" {
		id, err := resolve(t.CreatedBy)
		if err != nil {
			return 0, err
		}
		creator = id
	}

	in := service.TaskInput{
		BoardID:     boardID,
		Title:       t.Title,
		Description: t.Description,
		Status:      model.TaskStatus(t.Status),
		Priority:    model.TaskPriority(t.Priority),
	}
	for _, ref := range []struct {
		email string
		dst   **uint
	}{{t.Assignee, &in.AssigneeID}, {t.Reviewer, &in.ReviewerID}} {
		id, err := resolve(ref.email)
		if err != nil {
			return 0, err
		}
		if id != 0 {
			*ref.dst = &id
		}
	}
	if t.DueDate != "" {
		d, err := time.Parse("2006-01-02", t.DueDate)
		if err != nil {
			return 0, fmt.Errorf("task %q due_date: %w", t.Title, err)
		}
		in.DueDate = &d
	}

	task, err := s.tasks.Create(ctx, creator, in)
	if err != nil {
		return 0, fmt.Errorf("create task %q: %w", t.Title, err)
	}

	for _, c := range t.Comments {
		author, err := resolve(c.Author)
		if err != nil {
			return 0, err
		}
		if _, err := s.comments.Create(ctx, author, task.ID, c.Content); err != nil {
			return 0, fmt.Errorf("comment on %q: %w", t.Title, err)
		}
	}
	return len(t.Comments), nil
}

// Remove deletes the user with that email and everything the storage
// reference policies cascade from it.
func (s *Seeder) Remove(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.users.DeleteUser(ctx, user.ID)
}
