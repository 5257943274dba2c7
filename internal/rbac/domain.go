package rbac

import (
	"sort"
	"strings"
	"time"
)

// Wildcard grants every permission code.
const Wildcard = "*"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// PermissionSet is an immutable set of permission codes granted to one role.
// The zero value is an empty set. Copies share the same read-only storage.
type PermissionSet struct {
	codes map[string]struct{}
}

// NewPermissionSet builds a set from codes, ignoring blanks and duplicates.
func NewPermissionSet(codes ...string) PermissionSet {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return PermissionSet{codes: set}
}

// Allows reports whether the set grants code, either exactly or through the wildcard.
func (s PermissionSet) Allows(code string) bool {
	if _, ok := s.codes[Wildcard]; ok {
		return true
	}
	_, ok := s.codes[code]
	return ok
}

// Contains reports whether code is present verbatim.
func (s PermissionSet) Contains(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of codes.
func (s PermissionSet) Len() int {
	return len(s.codes)
}

// Codes returns a sorted copy of the codes.
func (s PermissionSet) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for code := range s.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
