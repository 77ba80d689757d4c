package auth

import "fmt"

// Role is one of the fixed platform roles.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleChurchLeader Role = "church_leader"
	RoleDNALeader    Role = "dna_leader"
	RoleDNATrainee   Role = "dna_trainee"
)

// AllRoles lists every valid role.
var AllRoles = []Role{RoleAdmin, RoleChurchLeader, RoleDNALeader, RoleDNATrainee}

// ParseRole validates a role name.
func ParseRole(name string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", name)
}

// IsGlobal reports whether the role always applies platform-wide.
// A global assignment of such a role satisfies any church-scoped check.
func (r Role) IsGlobal() bool {
	return r == RoleAdmin
}

// Scope says whether an assignment applies globally or to one church.
// The zero value is the global scope.
type Scope struct {
	churchID string
}

// GlobalScope returns the platform-wide scope.
func GlobalScope() Scope { return Scope{} }

// ChurchScope returns a scope bound to a church. An empty id yields the global scope.
func ChurchScope(churchID string) Scope { return Scope{churchID: churchID} }

// ScopeFromNullable maps a nullable church_id column to a Scope.
func ScopeFromNullable(churchID *string) Scope {
	if churchID == nil {
		return GlobalScope()
	}
	return ChurchScope(*churchID)
}

// IsGlobal reports whether the scope is platform-wide.
func (s Scope) IsGlobal() bool { return s.churchID == "" }

// ChurchID returns the church the scope is bound to, if any.
func (s Scope) ChurchID() (string, bool) {
	return s.churchID, s.churchID != ""
}

// Nullable maps the scope back to a nullable church_id column value.
func (s Scope) Nullable() *string {
	if s.IsGlobal() {
		return nil
	}
	id := s.churchID
	return &id
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "church:" + s.churchID
}

// Assignment is a role granted within a scope.
type Assignment struct {
	Role  Role
	Scope Scope
}

// NewAssignment builds an assignment, normalizing inherently global roles to
// the global scope.
func NewAssignment(role Role, scope Scope) Assignment {
	if role.IsGlobal() {
		scope = GlobalScope()
	}
	return Assignment{Role: role, Scope: scope}
}

func (a Assignment) String() string {
	return string(a.Role) + "@" + a.Scope.String()
}
