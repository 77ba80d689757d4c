package repository

import (
	"context"
	"testing"
	"time"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBunChurchRepository_ListWithKeyword(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", strPtr("grace"))
	seedChurch(t, db, "c2", "Hope", nil)
	seedChurch(t, db, "c3", "Faith", strPtr(""))
	ctx := context.Background()

	got, err := NewBunChurchRepository(db).ListWithKeyword(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	err = NewBunChurchRepository(db).Create(ctx, &models.Church{Name: "Grace Two", CalendarKeyword: strPtr("GRACE")})
	assert.ErrorIs(t, err, ErrConflict, "keywords are unique case-insensitively")
}

func TestBunCalendarConnectionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunCalendarConnectionRepository(db)
	ctx := context.Background()
	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	conn := &models.CalendarConnection{
		AccountEmail: "events@grace.org",
		ConnectedBy:  "admin-1",
		CalendarID:   "primary",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
	require.NoError(t, repo.Upsert(ctx, conn))

	t.Run("reconnect without refresh token keeps the stored one", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &models.CalendarConnection{
			AccountEmail: "events@grace.org",
			ConnectedBy:  "admin-2",
			CalendarID:   "primary",
			AccessToken:  "access-2",
			Expiry:       expiry,
		}))
		got, err := repo.Get(ctx, "events@grace.org")
		require.NoError(t, err)
		assert.Equal(t, "access-2", got.AccessToken)
		assert.Equal(t, "refresh-1", got.RefreshToken)
		assert.Equal(t, "admin-2", got.ConnectedBy)
	})

	t.Run("update token", func(t *testing.T) {
		require.NoError(t, repo.UpdateToken(ctx, "events@grace.org", models.OAuthToken{
			AccessToken: "access-3", TokenType: "Bearer", Expiry: expiry.Add(time.Hour),
		}))
		got, err := repo.Get(ctx, "events@grace.org")
		require.NoError(t, err)
		assert.Equal(t, "access-3", got.AccessToken)
		assert.Equal(t, "refresh-1", got.RefreshToken)

		err = repo.UpdateToken(ctx, "nobody@grace.org", models.OAuthToken{AccessToken: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("mark synced", func(t *testing.T) {
		require.NoError(t, repo.MarkSynced(ctx, "events@grace.org", time.Now()))
		got, err := repo.Get(ctx, "events@grace.org")
		require.NoError(t, err)
		assert.NotNil(t, got.LastSyncedAt)
	})

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBunCalendarEventRepository(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", nil)
	seedChurch(t, db, "c2", "Hope", nil)
	repo := NewBunCalendarEventRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)

	event := &models.CalendarEvent{
		ExternalID:   "evt-1",
		ChurchID:     "c1",
		AccountEmail: "events@grace.org",
		Title:        "Grace DNA night",
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, event))

	dup := *event
	dup.ID = ""
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrConflict)

	got, err := repo.GetByExternalID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace DNA night", got.Title)
	assert.True(t, start.Equal(got.StartsAt))

	got.ChurchID = "c2"
	got.Title = "Hope DNA night"
	require.NoError(t, repo.Update(ctx, got))

	inWindow, err := repo.ListByChurch(ctx, "c2", start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, inWindow, 1)
	assert.Equal(t, "Hope DNA night", inWindow[0].Title)

	outside, err := repo.ListByChurch(ctx, "c2", start.Add(time.Hour), start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, outside)

	removed, err := repo.DeleteByExternalID(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.DeleteByExternalID(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestBunUnmatchedEventRepository_InsertOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUnmatchedEventRepository(db)
	ctx := context.Background()
	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	first := &models.UnmatchedCalendarEvent{
		ExternalID: "evt-42", AccountEmail: "events@grace.org", Title: "Community picnic",
		StartsAt: start, EndsAt: start.Add(time.Hour), Raw: `{"id":"evt-42"}`,
	}
	inserted, err := repo.InsertIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	second := *first
	second.Title = "Renamed picnic"
	inserted, err = repo.InsertIfAbsent(ctx, &second)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByExternalID(ctx, "evt-42")
	require.NoError(t, err)
	assert.Equal(t, "Community picnic", got.Title)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := repo.Delete(ctx, "evt-42")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = repo.GetByExternalID(ctx, "evt-42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBunCalendarMappingRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	seedChurch(t, db, "c1", "Grace", nil)
	seedChurch(t, db, "c2", "Hope", nil)
	repo := NewBunCalendarMappingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.CalendarEventMapping{ExternalID: "evt-42", ChurchID: "c1", CreatedBy: "admin"}))
	require.NoError(t, repo.Upsert(ctx, &models.CalendarEventMapping{ExternalID: "evt-42", ChurchID: "c2", CreatedBy: "admin"}))

	got, err := repo.Get(ctx, "evt-42")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ChurchID)

	err = repo.Upsert(ctx, &models.CalendarEventMapping{ExternalID: "evt-43", ChurchID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(ctx, "evt-99")
	assert.ErrorIs(t, err, ErrNotFound)
}
