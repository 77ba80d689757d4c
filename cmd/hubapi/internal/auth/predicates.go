package auth

// Authorization predicates. All of them are pure functions of an
// already-resolved Session and treat a nil session as unauthorized.
//
// HasRole and HasChurchRole answer "does the session hold this grant". The gate
// predicate IsChurchLeader goes through allows(), which applies the admin rule
// before anything else.

// primaryChurchPreference orders church-scoped roles for PrimaryChurch.
var primaryChurchPreference = []Role{RoleChurchLeader, RoleDNALeader, RoleDNATrainee}

// IsAdmin reports whether any assignment grants admin. Admin is always global,
// so the scope is ignored.
func IsAdmin(s *Session) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Roles {
		if a.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// HasRole reports whether the session holds role in any scope.
func HasRole(s *Session, role Role) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// HasChurchRole reports whether the session holds role scoped to churchID, or
// holds it globally when the role is inherently global.
func HasChurchRole(s *Session, role Role, churchID string) bool {
	if s == nil || churchID == "" {
		return false
	}
	for _, a := range s.Roles {
		if a.Role != role {
			continue
		}
		if id, ok := a.Scope.ChurchID(); ok && id == churchID {
			return true
		}
		if a.Scope.IsGlobal() && role.IsGlobal() {
			return true
		}
	}
	return false
}

// IsChurchLeader reports whether the session may act as leader of churchID.
func IsChurchLeader(s *Session, churchID string) bool {
	return allows(s, func() bool {
		return HasChurchRole(s, RoleChurchLeader, churchID)
	})
}

// PrimaryChurch returns the church of the first church-scoped assignment,
// preferring church_leader over dna_leader over dna_trainee. Sessions with
// only global roles have no primary church.
func PrimaryChurch(s *Session) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, role := range primaryChurchPreference {
		for _, a := range s.Roles {
			if a.Role != role {
				continue
			}
			if id, ok := a.Scope.ChurchID(); ok {
				return id, true
			}
		}
	}
	return "", false
}

// allows is the single place the admin rule lives: admin passes every gate.
func allows(s *Session, check func() bool) bool {
	if s == nil {
		return false
	}
	if IsAdmin(s) {
		return true
	}
	return check()
}
