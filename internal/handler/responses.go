package handler

import (
	"time"

	"kanban/internal/model"
)

const dateLayout = "2006-01-02"

// UserInfo is the public view of a user.
type UserInfo struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

func userInfo(u *model.User) *UserInfo {
	if u == nil {
		return nil
	}
	return &UserInfo{ID: u.ID, Email: u.Email, Fullname: u.FullName()}
}

func userInfos(users []model.User) []UserInfo {
	out := make([]UserInfo, 0, len(users))
	for i := range users {
		out = append(out, *userInfo(&users[i]))
	}
	return out
}

// BoardSummary is a board as listed, with its cached counters.
type BoardSummary struct {
	ID                 uint   `json:"id"`
	Title              string `json:"title"`
	MemberCount        int    `json:"member_count"`
	TicketCount        int    `json:"ticket_count"`
	TasksToDoCount     int    `json:"tasks_to_do_count"`
	TasksHighPrioCount int    `json:"tasks_high_prio_count"`
	OwnerID            uint   `json:"owner_id"`
}

func boardSummary(b *model.Board) BoardSummary {
	return BoardSummary{
		ID:                 b.ID,
		Title:              b.Title,
		MemberCount:        b.MemberCount,
		TicketCount:        b.TicketCount,
		TasksToDoCount:     b.TasksToDoCount,
		TasksHighPrioCount: b.TasksHighPrioCount,
		OwnerID:            b.OwnerID,
	}
}

// BoardDetail is a single board with its members and tasks.
type BoardDetail struct {
	ID      uint           `json:"id"`
	Title   string         `json:"title"`
	OwnerID uint           `json:"owner_id"`
	Members []UserInfo     `json:"members"`
	Tasks   []TaskResponse `json:"tasks"`
}

// BoardPatchResponse is returned after a board update.
type BoardPatchResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	OwnerData   *UserInfo  `json:"owner_data"`
	MembersData []UserInfo `json:"members_data"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID            uint      `json:"id"`
	Board         uint      `json:"board"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Assignee      *UserInfo `json:"assignee"`
	Reviewer      *UserInfo `json:"reviewer"`
	DueDate       *string   `json:"due_date"`
	CommentsCount int       `json:"comments_count"`
}

func taskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:            t.ID,
		Board:         t.BoardID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		Assignee:      userInfo(t.Assignee),
		Reviewer:      userInfo(t.Reviewer),
		CommentsCount: t.CommentsCount,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	return resp
}

func taskResponses(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskResponse(&tasks[i]))
	}
	return out
}

// CommentResponse is the public view of a comment. Author is the author's
// full name.
type CommentResponse struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
}

func commentResponse(c *model.Comment) CommentResponse {
	resp := CommentResponse{ID: c.ID, CreatedAt: c.CreatedAt, Content: c.Content}
	if c.Author != nil {
		resp.Author = c.Author.FullName()
	}
	return resp
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
