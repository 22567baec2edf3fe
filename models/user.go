package models

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleLid   UserRole = "lid"
)

// User is a club member. Only the fields the scheduling subsystem needs:
// login for the admin gate, name and email for postponement mails.
type User struct {
	ID           int       `json:"id" db:"id"`
	Naam         string    `json:"naam" db:"naam"`
	Email        string    `json:"email" db:"email"`
	Rol          UserRole  `json:"rol" db:"rol"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
