package repository

import (
	"context"
	"testing"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/models"
	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/db/testdb"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	return testdb.New(t)
}

func seedChurch(t *testing.T, db *bun.DB, id, name string, keyword *string) *models.Church {
	t.Helper()
	church := &models.Church{ID: id, Name: name, CalendarKeyword: keyword}
	require.NoError(t, NewBunChurchRepository(db).Create(context.Background(), church))
	return church
}

func seedLeader(t *testing.T, db *bun.DB, id, churchID, email string) *models.ChurchLeader {
	t.Helper()
	leader := &models.ChurchLeader{ID: id, ChurchID: churchID, Email: email, Name: "Leader " + id}
	require.NoError(t, NewBunChurchLeaderRepository(db).Create(context.Background(), leader))
	return leader
}

func strPtr(s string) *string { return &s }
