package profiles

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/deepr/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "profiles.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Profile{}, &entities.Tag{}, &entities.Link{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_GetOrCreate(t *testing.T) {
	repo := setupTestDB(t)

	work, err := repo.GetOrCreate("Work")
	require.NoError(t, err)
	again, err := repo.GetOrCreate("Work")
	require.NoError(t, err)
	assert.Equal(t, work.ID, again.ID)

	byID, err := repo.GetByID(work.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", byID.Name)
}

func TestRepository_ListAndDeleteAll(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.Create(&entities.Profile{Name: "A"}))
	require.NoError(t, repo.Create(&entities.Profile{Name: "B"}))

	list, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.DeleteAll())
	list, err = repo.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.GetByName("A")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
