package model

import (
	"strings"
	"time"
)

// User represents a registered person. Email is the login identity.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FirstName    string    `json:"first_name" gorm:"size:150;not null;default:''"`
	LastName     string    `json:"last_name" gorm:"size:150;not null;default:''"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SplitFullName splits on the first run of whitespace. The remaining words
// are joined by a single space and form the last name, which may be empty.
func SplitFullName(fullname string) (first, last string) {
	parts := strings.Fields(fullname)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
