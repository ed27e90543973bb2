package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/deepr/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(withForeignKeys(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Profile{},
		&entities.Tag{},
		&entities.Link{},
		&entities.Setting{},
		&entities.OAuthToken{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.SeedDefaultProfile(); err != nil {
		return nil, fmt.Errorf("failed to seed profiles: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

// withForeignKeys turns on SQLite foreign key enforcement for the connection.
func withForeignKeys(dbPath string) string {
	if strings.Contains(dbPath, "_foreign_keys") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeedDefaultProfile creates the default profile when the store has none.
func (d *Database) SeedDefaultProfile() error {
	var count int64
	if err := d.DB.Model(&entities.Profile{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	profile := entities.Profile{Name: entities.DefaultProfileName}
	if err := d.DB.Create(&profile).Error; err != nil {
		return fmt.Errorf("failed to create profile %s: %w", profile.Name, err)
	}
	log.Printf("Created profile: %s", profile.Name)
	return nil
}

// WithTransaction runs fn inside a single storage transaction.
func (d *Database) WithTransaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}
