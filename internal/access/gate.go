// Package access decides which caller may perform which operation.
//
// Identities are email addresses supplied by the hosting environment. They
// are compared byte for byte: "Admin@Example.com" and "admin@example.com"
// are different callers.
package access

import (
	"errors"
	"sort"
	"strings"
)

// ErrPermissionDenied is returned when a caller lacks the required role.
var ErrPermissionDenied = errors.New("access: permission denied")

// Role is the privilege an operation requires.
type Role int

const (
	// RoleIdentified admits any caller with a non-empty identity.
	RoleIdentified Role = iota
	// RoleOwnerOrAdmin admits the record owner or an administrator.
	RoleOwnerOrAdmin
	// RoleAdmin admits administrators only.
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleIdentified:
		return "identified"
	case RoleOwnerOrAdmin:
		return "owner_or_admin"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Gate holds the static administrator allow-list.
type Gate struct {
	admins map[string]struct{}
}

// NewGate builds a gate from the allow-list. Surrounding whitespace is trimmed
// from each entry; case is preserved.
func NewGate(admins []string) *Gate {
	set := make(map[string]struct{}, len(admins))
	for _, email := range admins {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		set[email] = struct{}{}
	}
	return &Gate{admins: set}
}

// IsAdmin reports whether email is on the allow-list. The empty identity is
// never an administrator.
func (g *Gate) IsAdmin(email string) bool {
	if g == nil || email == "" {
		return false
	}
	_, ok := g.admins[email]
	return ok
}

// Authorize returns ErrPermissionDenied unless email satisfies role. owner is
// consulted only for RoleOwnerOrAdmin. An empty email never matches an owner,
// even an empty one.
func (g *Gate) Authorize(email string, role Role, owner string) error {
	if email == "" {
		return ErrPermissionDenied
	}

	switch role {
	case RoleIdentified:
		return nil
	case RoleOwnerOrAdmin:
		if email == owner || g.IsAdmin(email) {
			return nil
		}
	case RoleAdmin:
		if g.IsAdmin(email) {
			return nil
		}
	}
	return ErrPermissionDenied
}

// Admins returns the allow-list in sorted order.
func (g *Gate) Admins() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.admins))
	for email := range g.admins {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}
