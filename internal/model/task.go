package model

import "time"

// TaskStatus represents the column a task sits in.
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "to-do"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority represents how urgent a task is.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work on a board.
type Task struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	BoardID       uint         `json:"board" gorm:"not null;index"`
	Title         string       `json:"title" gorm:"size:255;not null"`
	Description   string       `json:"description" gorm:"type:text"`
	Status        TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'to-do';index"`
	Priority      TaskPriority `json:"priority" gorm:"type:varchar(10);not null;default:'medium';index"`
	AssigneeID    *uint        `json:"assignee_id" gorm:"index"`
	ReviewerID    *uint        `json:"reviewer_id" gorm:"index"`
	DueDate       *time.Time   `json:"due_date" gorm:"type:date"`
	CommentsCount int          `json:"comments_count" gorm:"not null;default:0"`
	CreatedByID   uint         `json:"created_by" gorm:"not null;index"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	// Relations
	Assignee  *User     `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL"`
	Reviewer  *User     `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID;constraint:OnDelete:SET NULL"`
	CreatedBy *User     `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
	Comments  []Comment `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TaskTally holds the board counters derived from a task collection.
type TaskTally struct {
	Tickets      int
	ToDo         int
	HighPriority int
}
