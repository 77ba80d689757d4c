package repository

import (
	"context"
	"testing"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunLegacySessionRepository(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", nil)
	seedLeader(t, db, "l1", "c1", "leader@grace.org")
	repo := NewBunLegacySessionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	live := &models.LegacySession{TokenHash: "hash-live", LeaderID: "l1", ChurchID: "c1", ExpiresAt: now.Add(24 * time.Hour)}
	stale := &models.LegacySession{TokenHash: "hash-stale", LeaderID: "l1", ChurchID: "c1", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.GetByTokenHash(ctx, "hash-live")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.LeaderID)
	assert.Equal(t, "c1", got.ChurchID)

	_, err = repo.GetByTokenHash(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.GetByTokenHash(ctx, "hash-stale")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.DeleteByTokenHash(ctx, "hash-live"))
	require.NoError(t, repo.DeleteByTokenHash(ctx, "hash-live"))
	_, err = repo.GetByTokenHash(ctx, "hash-live")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunLegacySessionRepository_DeleteByLeader(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", nil)
	seedChurch(t, db, "c2", "Hope", nil)
	seedLeader(t, db, "l1", "c1", "leader@grace.org")
	seedLeader(t, db, "l2", "c1", "other@grace.org")
	repo := NewBunLegacySessionRepository(db)
	ctx := context.Background()
	expires := time.Now().UTC().Add(24 * time.Hour)

	for _, s := range []*models.LegacySession{
		{TokenHash: "l1-a", LeaderID: "l1", ChurchID: "c1", ExpiresAt: expires},
		{TokenHash: "l1-b", LeaderID: "l1", ChurchID: "c1", ExpiresAt: expires},
		{TokenHash: "l1-other-church", LeaderID: "l1", ChurchID: "c2", ExpiresAt: expires},
		{TokenHash: "l2-a", LeaderID: "l2", ChurchID: "c1", ExpiresAt: expires},
	} {
		require.NoError(t, repo.Create(ctx, s))
	}

	n, err := repo.DeleteByLeader(ctx, "l1", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetByTokenHash(ctx, "l1-a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByTokenHash(ctx, "l1-other-church")
	assert.NoError(t, err)
	_, err = repo.GetByTokenHash(ctx, "l2-a")
	assert.NoError(t, err)

	n, err = repo.DeleteByLeader(ctx, "l1", "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBunLegacyActivationRepository_Consume(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", nil)
	seedLeader(t, db, "l1", "c1", "leader@grace.org")
	repo := NewBunLegacyActivationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &models.LegacyActivation{TokenHash: "fresh", LeaderID: "l1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.LegacyActivation{TokenHash: "expired", LeaderID: "l1", ExpiresAt: now.Add(-time.Minute)}))

	a, err := repo.Consume(ctx, "fresh", now)
	require.NoError(t, err)
	assert.Equal(t, "l1", a.LeaderID)
	require.NotNil(t, a.UsedAt)

	_, err = repo.Consume(ctx, "fresh", now)
	assert.ErrorIs(t, err, ErrNotFound, "single use")

	_, err = repo.Consume(ctx, "expired", now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Consume(ctx, "unknown", now)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, &models.LegacyActivation{TokenHash: "orphan", LeaderID: "missing", ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunChurchLeaderRepository(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", nil)
	seedLeader(t, db, "l1", "c1", "leader@grace.org")
	repo := NewBunChurchLeaderRepository(db)
	ctx := context.Background()

	got, err := repo.GetByEmail(ctx, "leader@grace.org")
	require.NoError(t, err)
	assert.Equal(t, "l1", got.ID)

	err = repo.Create(ctx, &models.ChurchLeader{ChurchID: "c1", Email: "leader@grace.org"})
	assert.ErrorIs(t, err, ErrConflict)

	err = repo.Create(ctx, &models.ChurchLeader{ChurchID: "missing", Email: "other@grace.org"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
