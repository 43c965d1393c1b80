package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles known to the LMS.
type Role uint8

const (
	RoleStudent Role = iota + 1
	RoleInstructor
	RoleAdmin
	// RoleSuperAdmin is the highest-privilege role.
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleStudent:    "student",
	RoleInstructor: "instructor",
	RoleAdmin:      "admin",
	RoleSuperAdmin: "super_admin",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole converts a role tag into a Role. Unknown tags are an error.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UserStatus is what the service discloses about a candidate email.
type UserStatus struct {
	Exists      bool
	PasswordSet bool
	Invited     bool
}

// User is an authenticated user as reported by the service.
type User struct {
	ID          string
	Email       string
	Role        Role
	FullName    string
	PasswordSet bool
}

// SessionEvent is one emission of the session observation stream.
// User is nil when the session ended. Recovery is set while a
// password-recovery session is in progress.
type SessionEvent struct {
	User     *User
	Recovery bool
}
