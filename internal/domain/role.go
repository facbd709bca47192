package domain

// Role is the privilege level consulted before mutating tickets.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ParseRole maps the literal "Admin" to RoleAdmin and anything else to
// RoleUser.
func ParseRole(value string) Role {
	if value == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// IsAdmin reports whether the role may mutate existing tickets.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Toggled returns the opposite role.
func (r Role) Toggled() Role {
	if r.IsAdmin() {
		return RoleUser
	}
	return RoleAdmin
}
