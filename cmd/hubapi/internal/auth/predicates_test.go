package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sessionWith(roles ...Assignment) *Session {
	return NewSession("user-1", "Leader@Example.com", "Leader", SourceProvider, "key", roles)
}

func TestPredicates_DNALeaderExample(t *testing.T) {
	s := sessionWith(Assignment{Role: RoleDNALeader, Scope: ChurchScope("c1")})

	assert.False(t, IsChurchLeader(s, "c1"))
	assert.True(t, HasChurchRole(s, RoleDNALeader, "c1"))
	assert.False(t, HasChurchRole(s, RoleDNALeader, "c2"))
	assert.True(t, HasRole(s, RoleDNALeader))
	assert.False(t, IsAdmin(s))
}

func TestIsAdmin_IgnoresOtherRolesAndScopes(t *testing.T) {
	cases := map[string][]Assignment{
		"admin only":         {{Role: RoleAdmin}},
		"admin scoped":       {{Role: RoleAdmin, Scope: ChurchScope("c9")}},
		"admin with trainee": {{Role: RoleDNATrainee, Scope: ChurchScope("c1")}, {Role: RoleAdmin}},
		"admin with leader":  {{Role: RoleChurchLeader, Scope: ChurchScope("c2")}, {Role: RoleAdmin, Scope: ChurchScope("c3")}},
		"admin listed twice": {{Role: RoleAdmin}, {Role: RoleAdmin}},
	}
	for name, roles := range cases {
		t.Run(name, func(t *testing.T) {
			s := sessionWith(roles...)
			assert.True(t, IsAdmin(s))
			assert.True(t, IsChurchLeader(s, "any-church"))
			assert.True(t, HasChurchRole(s, RoleAdmin, "any-church"))
		})
	}
}

func TestHasChurchRole_NoMatchingAssignment(t *testing.T) {
	s := sessionWith(
		Assignment{Role: RoleChurchLeader, Scope: ChurchScope("c1")},
		Assignment{Role: RoleDNATrainee, Scope: GlobalScope()},
	)

	assert.False(t, HasChurchRole(s, RoleChurchLeader, "c2"))
	assert.False(t, HasChurchRole(s, RoleDNALeader, "c1"))
	// a global grant of a church-bound role does not satisfy a scoped check
	assert.False(t, HasChurchRole(s, RoleDNATrainee, "c1"))
	assert.False(t, HasChurchRole(s, RoleChurchLeader, ""))
}

func TestHasRole_AdminRuleOnlyAppliesToGates(t *testing.T) {
	s := sessionWith(Assignment{Role: RoleAdmin})

	assert.False(t, HasRole(s, RoleDNATrainee))
	assert.False(t, HasChurchRole(s, RoleChurchLeader, "c1"))
	assert.True(t, IsChurchLeader(s, "c1"))
}

func TestIsChurchLeader(t *testing.T) {
	s := sessionWith(
		Assignment{Role: RoleChurchLeader, Scope: ChurchScope("c1")},
		Assignment{Role: RoleDNALeader, Scope: ChurchScope("c2")},
	)

	assert.True(t, IsChurchLeader(s, "c1"))
	assert.False(t, IsChurchLeader(s, "c2"))
	assert.False(t, IsChurchLeader(s, ""))
}

func TestPredicates_NilAndEmptySessions(t *testing.T) {
	var nilSession *Session
	empty := sessionWith()

	for _, s := range []*Session{nilSession, empty} {
		assert.False(t, IsAdmin(s))
		assert.False(t, HasRole(s, RoleAdmin))
		assert.False(t, IsChurchLeader(s, "c1"))
		_, ok := PrimaryChurch(s)
		assert.False(t, ok)
	}
}

func TestPrimaryChurch(t *testing.T) {
	tests := []struct {
		name   string
		roles  []Assignment
		want   string
		wantOK bool
	}{
		{
			name: "church leader preferred over earlier dna roles",
			roles: []Assignment{
				{Role: RoleDNATrainee, Scope: ChurchScope("t1")},
				{Role: RoleDNALeader, Scope: ChurchScope("l1")},
				{Role: RoleChurchLeader, Scope: ChurchScope("cl1")},
			},
			want: "cl1", wantOK: true,
		},
		{
			name: "dna leader preferred over trainee",
			roles: []Assignment{
				{Role: RoleDNATrainee, Scope: ChurchScope("t1")},
				{Role: RoleDNALeader, Scope: ChurchScope("l1")},
			},
			want: "l1", wantOK: true,
		},
		{
			name: "first scoped assignment of the preferred role wins",
			roles: []Assignment{
				{Role: RoleChurchLeader, Scope: ChurchScope("first")},
				{Role: RoleChurchLeader, Scope: ChurchScope("second")},
			},
			want: "first", wantOK: true,
		},
		{
			name: "global leader assignment is skipped",
			roles: []Assignment{
				{Role: RoleChurchLeader, Scope: GlobalScope()},
				{Role: RoleDNATrainee, Scope: ChurchScope("t1")},
			},
			want: "t1", wantOK: true,
		},
		{
			name:  "admin only",
			roles: []Assignment{{Role: RoleAdmin}},
		},
		{
			name:  "admin scoped to a church is normalized to global",
			roles: []Assignment{{Role: RoleAdmin, Scope: ChurchScope("c1")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWith(tt.roles...)
			got, ok := PrimaryChurch(s)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			// stable for the same input
			again, _ := PrimaryChurch(s)
			assert.Equal(t, got, again)
		})
	}
}

func TestNewSession_Normalizes(t *testing.T) {
	s := NewSession("u", "  Mixed@Case.ORG ", " Name ", SourceLegacy, "k", []Assignment{
		{Role: RoleAdmin, Scope: ChurchScope("c1")},
		{Role: RoleAdmin},
		{Role: RoleDNALeader, Scope: ChurchScope("c1")},
		{Role: RoleDNALeader, Scope: ChurchScope("c1")},
	})

	assert.Equal(t, "mixed@case.org", s.Email)
	assert.Equal(t, "Name", s.Name)
	assert.Equal(t, []Assignment{
		{Role: RoleAdmin, Scope: GlobalScope()},
		{Role: RoleDNALeader, Scope: ChurchScope("c1")},
	}, s.Roles)
}
