package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/repository"
)

// createTestItem creates an item owned by userID and fails the test if it errors.
func createTestItem(t *testing.T, db *DB, userID, title string, createdAt time.Time) *model.Item {
	t.Helper()
	item := &model.Item{
		UserID:    userID,
		Title:     title,
		URL:       "https://example.com/" + title,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.CreateItem(context.Background(), item))
	return item
}

func TestCreateItem(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "1", "poster", "s1")

	item := &model.Item{UserID: "1", Title: "Show HN", URL: "https://example.com"}
	require.NoError(t, db.CreateItem(context.Background(), item))

	assert.NotEmpty(t, item.ID)
	assert.False(t, item.CreatedAt.IsZero(), "CreatedAt should default to now")
	assert.Equal(t, 0, item.Score)

	found, err := db.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Show HN", found.Title)
	assert.Equal(t, "https://example.com", found.URL)
	assert.Equal(t, "1", found.UserID)
}

func TestCreateItem_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateItem(context.Background(), &model.Item{UserID: "ghost", Title: "x", URL: "https://x.io"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestGetItem_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetItem(context.Background(), "nonexistent")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestListItems_NewestFirstWithPagination(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "1", "poster", "s1")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	createTestItem(t, db, "1", "oldest", base)
	createTestItem(t, db, "1", "middle", base.Add(time.Hour))
	createTestItem(t, db, "1", "newest", base.Add(2*time.Hour))

	items, err := db.ListItems(context.Background(), repository.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newest", items[0].Title)
	assert.Equal(t, "middle", items[1].Title)

	rest, err := db.ListItems(context.Background(), repository.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "oldest", rest[0].Title)
}

func TestListItems_Empty(t *testing.T) {
	db := newTestDB(t)

	items, err := db.ListItems(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, items, "an empty page is an empty slice, not nil")
	assert.Empty(t, items)
}

// =========================================================================
// VOTE TESTS
// =========================================================================

func TestVote_IdempotentAndAdjustsScore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "1", "poster", "s1")
	createTestUser(t, db, "2", "voter", "s2")
	item := createTestItem(t, db, "1", "votable", time.Now())

	changed, err := db.CreateVote(ctx, item.ID, "2")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.CreateVote(ctx, item.ID, "2")
	require.NoError(t, err)
	assert.False(t, changed, "second vote by the same user must be a no-op")

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Score)

	changed, err = db.DeleteVote(ctx, item.ID, "2")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.DeleteVote(ctx, item.ID, "2")
	require.NoError(t, err)
	assert.False(t, changed)

	got, err = db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Score)
}

func TestVote_UnknownItem(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "2", "voter", "s2")

	_, err := db.CreateVote(context.Background(), "missing", "2")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestVotedItemIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "1", "poster", "s1")
	a := createTestItem(t, db, "1", "a", time.Now())
	b := createTestItem(t, db, "1", "b", time.Now())

	_, err := db.CreateVote(ctx, a.ID, "1")
	require.NoError(t, err)

	voted, err := db.VotedItemIDs(ctx, "1", []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{a.ID: true}, voted)

	none, err := db.VotedItemIDs(ctx, "1", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
