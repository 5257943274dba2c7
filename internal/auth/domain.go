package auth

import "time"

// User represents an admin account able to log in.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	RoleID       int64
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
