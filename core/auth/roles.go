package auth

import "strings"

// Roles are prefix-scoped, mirroring the platform's role scheme.
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Tutor
	RoleTutor = "tutor:"

	// Student
	RoleStudent = "student:"
)

// RoleStartsWith reports whether any of the roles carries the prefix.
func RoleStartsWith(roles []string, prefix string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// Identity is the authenticated principal as seen by the client.
type Identity struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func (i Identity) IsAdmin() bool {
	return RoleStartsWith(i.Roles, RoleAdmin)
}

func (i Identity) IsTutor() bool {
	return RoleStartsWith(i.Roles, RoleTutor)
}

func (i Identity) IsStudent() bool {
	return RoleStartsWith(i.Roles, RoleStudent)
}
