package auth

import (
	"errors"
	"fmt"
)

// Authentication and authorization failures.
var (
	ErrCredentialAbsent       = errors.New("auth: credential absent")
	ErrCredentialMalformed    = errors.New("auth: authorization header malformed")
	ErrAuthenticationRequired = errors.New("auth: authentication required")
	ErrInsufficientPermission = errors.New("auth: insufficient permission")
)

// Messages returned to clients. Internal reasons stay in the logs.
const (
	msgUnauthenticated = "invalid or missing credentials"
	msgAuthRequired    = "authentication required"
	msgForbidden       = "insufficient permissions"
)

// PermissionError records which identity was denied which codes.
type PermissionError struct {
	SubjectID int64
	RoleID    int64
	Required  []string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("auth: subject %d (role %d) lacks %v", e.SubjectID, e.RoleID, e.Required)
}

// Is matches ErrInsufficientPermission.
func (e *PermissionError) Is(target error) bool { return target == ErrInsufficientPermission }
