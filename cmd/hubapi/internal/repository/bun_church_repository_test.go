package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
)

func TestChurchRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunChurchRepository(db)
	ctx := context.Background()

	church := &models.Church{Name: "Grace Fellowship", CalendarKeyword: strPtr("grace")}
	require.NoError(t, repo.Create(ctx, church))
	assert.NotEmpty(t, church.ID)
	assert.False(t, church.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, church.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Fellowship", got.Name)
	require.NotNil(t, got.CalendarKeyword)
	assert.Equal(t, "grace", *got.CalendarKeyword)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChurchRepository_KeywordUniqueIgnoringCase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunChurchRepository(db)
	ctx := context.Background()

	seedChurch(t, db, "c1", "Grace", strPtr("grace"))

	err := repo.Create(ctx, &models.Church{ID: "c2", Name: "Other Grace", CalendarKeyword: strPtr("GRACE")})
	assert.ErrorIs(t, err, ErrConflict)

	// churches without a keyword never collide
	require.NoError(t, repo.Create(ctx, &models.Church{ID: "c3", Name: "Quiet"}))
	require.NoError(t, repo.Create(ctx, &models.Church{ID: "c4", Name: "Silent"}))
}

func TestChurchRepository_Lists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunChurchRepository(db)
	ctx := context.Background()

	seedChurch(t, db, "c2", "Hope", strPtr("hope"))
	seedChurch(t, db, "c1", "Grace", strPtr("grace"))
	seedChurch(t, db, "c3", "Quiet", nil)
	seedChurch(t, db, "c4", "Blank", strPtr(""))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Blank", "Grace", "Hope", "Quiet"}, names)

	keyed, err := repo.ListWithKeyword(ctx)
	require.NoError(t, err)
	require.Len(t, keyed, 2)
	assert.Equal(t, "c1", keyed[0].ID)
	assert.Equal(t, "c2", keyed[1].ID)
}

func TestChurchLeaderRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunChurchLeaderRepository(db)
	ctx := context.Background()

	seedChurch(t, db, "c1", "Grace", nil)
	leader := seedLeader(t, db, "leader-1", "c1", "pastor@grace.example")

	got, err := repo.GetByID(ctx, leader.ID)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ChurchID)

	got, err = repo.GetByEmail(ctx, "pastor@grace.example")
	require.NoError(t, err)
	assert.Equal(t, "leader-1", got.ID)

	_, err = repo.GetByEmail(ctx, "nobody@grace.example")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, &models.ChurchLeader{ChurchID: "c1", Email: "pastor@grace.example"})
	assert.ErrorIs(t, err, ErrConflict)
}
