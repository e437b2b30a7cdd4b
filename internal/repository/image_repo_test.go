package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/testutil"
)

func TestImageRepository_MarkCompleted_OnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	user := testutil.TestUser(t, db)
	image := testutil.TestImage(t, db, user.ID)

	updated, err := repo.MarkCompleted(image.ID, "generated/1.png", "local://generated/1.png")
	require.NoError(t, err)
	assert.True(t, updated)

	// 第二次进入终态被拒绝
	updated, err = repo.MarkCompleted(image.ID, "generated/other.png", "local://generated/other.png")
	require.NoError(t, err)
	assert.False(t, updated)

	reloaded, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImageStatusCompleted, reloaded.Status)
	assert.Equal(t, "generated/1.png", reloaded.GeneratedKey)
	require.NotNil(t, reloaded.CompletedAt)
}

func TestImageRepository_MarkFailed_AfterCompletedIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	user := testutil.TestUser(t, db)
	image := testutil.TestImage(t, db, user.ID)

	updated, err := repo.MarkCompleted(image.ID, "generated/1.png", "local://generated/1.png")
	require.NoError(t, err)
	require.True(t, updated)

	// 完成之后不允许再转失败
	updated, err = repo.MarkFailed(image.ID, "upstream timeout")
	require.NoError(t, err)
	assert.False(t, updated)

	reloaded, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImageStatusCompleted, reloaded.Status)
	assert.Empty(t, reloaded.ErrorMessage)
}

func TestImageRepository_MarkFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	user := testutil.TestUser(t, db)
	image := testutil.TestImage(t, db, user.ID)

	updated, err := repo.MarkFailed(image.ID, "风格化服务调用失败")
	require.NoError(t, err)
	assert.True(t, updated)

	reloaded, err := repo.GetByID(image.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImageStatusFailed, reloaded.Status)
	assert.Equal(t, "风格化服务调用失败", reloaded.ErrorMessage)
}

func TestImageRepository_ListByUser_Pagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	user := testutil.TestUser(t, db)

	for i := 0; i < 5; i++ {
		testutil.TestImage(t, db, user.ID)
	}

	images, total, err := repo.ListByUser(user.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, images, 3)

	images, total, err = repo.ListByUser(user.ID, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, images, 2)
}

func TestImageRepository_ListStuckProcessing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewImageRepository(db)
	user := testutil.TestUser(t, db)

	old := testutil.TestImage(t, db, user.ID, testutil.WithCreatedAt(time.Now().Add(-time.Hour)))
	testutil.TestImage(t, db, user.ID) // 新任务，不应入选
	done := testutil.TestImage(t, db, user.ID,
		testutil.WithCreatedAt(time.Now().Add(-time.Hour)),
		testutil.WithStatus(model.ImageStatusCompleted))

	stuck, err := repo.ListStuckProcessing(time.Now().Add(-30 * time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, old.ID, stuck[0].ID)
	assert.NotEqual(t, done.ID, stuck[0].ID)
}
