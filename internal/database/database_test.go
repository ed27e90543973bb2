package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabaseSeedsDefaultProfile(t *testing.T) {
	db := setupTestDB(t)

	var profiles []entities.Profile
	require.NoError(t, db.DB.Find(&profiles).Error)
	require.Len(t, profiles, 1)
	assert.Equal(t, entities.DefaultProfileName, profiles[0].Name)

	// Seeding again is a no-op
	require.NoError(t, db.SeedDefaultProfile())
	var count int64
	db.DB.Model(&entities.Profile{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := setupTestDB(t)

	err := db.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entities.Tag{Name: "rolled-back"}).Error; err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	db.DB.Model(&entities.Tag{}).Count(&count)
	assert.Zero(t, count)
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "a.db?_foreign_keys=on", withForeignKeys("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_foreign_keys=on", withForeignKeys("a.db?mode=rwc"))
	assert.Equal(t, "a.db?_foreign_keys=off", withForeignKeys("a.db?_foreign_keys=off"))
}
