package model

import "time"

// Board is a shared workspace with an owner, a member set and tasks.
// The four count fields are derived from Members and Tasks and are
// recomputed inside the transaction that mutates their source.
type Board struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Title              string    `json:"title" gorm:"size:255;not null"`
	OwnerID            uint      `json:"owner_id" gorm:"not null;index"`
	MemberCount        int       `json:"member_count" gorm:"not null;default:0"`
	TicketCount        int       `json:"ticket_count" gorm:"not null;default:0"`
	TasksToDoCount     int       `json:"tasks_to_do_count" gorm:"not null;default:0"`
	TasksHighPrioCount int       `json:"tasks_high_prio_count" gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relations
	Owner   *User  `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Members []User `json:"members,omitempty" gorm:"many2many:board_members"`
	Tasks   []Task `json:"tasks,omitempty" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

// BoardMember is the join row between a board and one of its members.
type BoardMember struct {
	BoardID   uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

// IsOwner reports whether userID owns the board.
func (b *Board) IsOwner(userID uint) bool {
	return b.OwnerID == userID
}

// HasMember reports whether userID is in the loaded member set.
func (b *Board) HasMember(userID uint) bool {
	for _, m := range b.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the ids of the loaded members.
func (b *Board) MemberIDs() []uint {
	ids := make([]uint, 0, len(b.Members))
	for _, m := range b.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
