package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/repository"
)

type recordingInvalidator struct {
	users []string
}

func (r *recordingInvalidator) InvalidateUser(userID string) {
	r.users = append(r.users, userID)
}

func TestRoleAdmin_Assign(t *testing.T) {
	repo := &mockRoleRepository{}
	inv := &recordingInvalidator{}
	admin := NewRoleAdmin(repo, inv, nil)
	ctx := context.Background()

	row, err := admin.Assign(ctx, "actor", "u1", auth.Assignment{Role: auth.RoleAdmin, Scope: auth.ChurchScope("c1")})
	require.NoError(t, err)
	assert.Nil(t, row.ChurchID, "admin is stored as a global grant")
	assert.Equal(t, "actor", row.CreatedBy)

	_, err = admin.Assign(ctx, "actor", "u1", auth.Assignment{Role: auth.RoleDNATrainee})
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	_, err = admin.Assign(ctx, "actor", "u1", auth.Assignment{Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = admin.Assign(ctx, "actor", "", auth.Assignment{Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	assert.Equal(t, []string{"u1"}, inv.users, "only successful writes invalidate")
}

func TestRoleAdmin_Revoke(t *testing.T) {
	repo := &mockRoleRepository{}
	inv := &recordingInvalidator{}
	admin := NewRoleAdmin(repo, inv, nil)
	ctx := context.Background()

	a := auth.Assignment{Role: auth.RoleChurchLeader, Scope: auth.ChurchScope("c1")}
	_, err := admin.Assign(ctx, "actor", "u1", a)
	require.NoError(t, err)

	require.NoError(t, admin.Revoke(ctx, "actor", "u1", a))
	assert.ErrorIs(t, admin.Revoke(ctx, "actor", "u1", a), repository.ErrNotFound)

	rows, err := admin.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, []string{"u1", "u1"}, inv.users)
}

func TestRoleAdmin_RevokeChurchLeaderEndsLegacySessions(t *testing.T) {
	legacy := &mockLegacySessionRepository{sessions: map[string]*models.LegacySession{
		"h1":        {TokenHash: "h1", LeaderID: "u1", ChurchID: "c1"},
		"h2":        {TokenHash: "h2", LeaderID: "u1", ChurchID: "c1"},
		"elsewhere": {TokenHash: "elsewhere", LeaderID: "u1", ChurchID: "c2"},
		"other":     {TokenHash: "other", LeaderID: "u2", ChurchID: "c1"},
	}}
	admin := NewRoleAdmin(&mockRoleRepository{}, nil, nil).WithLegacySessions(legacy)
	ctx := context.Background()

	trainee := auth.Assignment{Role: auth.RoleDNATrainee, Scope: auth.ChurchScope("c1")}
	leader := auth.Assignment{Role: auth.RoleChurchLeader, Scope: auth.ChurchScope("c1")}
	for _, a := range []auth.Assignment{trainee, leader} {
		_, err := admin.Assign(ctx, "actor", "u1", a)
		require.NoError(t, err)
	}

	require.NoError(t, admin.Revoke(ctx, "actor", "u1", trainee))
	assert.Len(t, legacy.sessions, 4, "only church_leader revocation touches legacy sessions")

	require.NoError(t, admin.Revoke(ctx, "actor", "u1", leader))
	assert.Len(t, legacy.sessions, 2)
	assert.Contains(t, legacy.sessions, "elsewhere")
	assert.Contains(t, legacy.sessions, "other")
}

func TestRoleAdmin_NilInvalidator(t *testing.T) {
	admin := NewRoleAdmin(&mockRoleRepository{}, nil, nil)
	_, err := admin.Assign(context.Background(), "cli", "u1", auth.Assignment{Role: auth.RoleAdmin})
	assert.NoError(t, err)
}
