package entities

import "time"

// MaxNameLength is the longest display name a user may register with.
const MaxNameLength = 50

// User is an account registered through signup. Records are append-only:
// nothing in the application updates or deletes them.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:50;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Summary returns the snapshot of the user that is copied into a session.
func (u *User) Summary() UserSummary {
	return UserSummary{Name: u.Name, Email: u.Email}
}

// UserSummary is the part of a user carried by a session. It is captured when
// the session is created and never refreshed afterwards.
type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
