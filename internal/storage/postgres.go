package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/queuebot/queuebot/internal/models"
)

// InitPostgres opens the PostgreSQL connection, configures the pool, and
// migrates the schema.
func InitPostgres(dsn string, maxIdleConns, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs schema migration for every bot entity. Exposed separately so
// tests can run it against other gorm dialects.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Guild{},
		&models.Queue{},
		&models.Member{},
		&models.ArchivedMember{},
		&models.Display{},
		&models.Prioritized{},
		&models.Whitelisted{},
		&models.Blacklisted{},
		&models.Admin{},
		&models.Schedule{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// BuildDSN assembles a PostgreSQL DSN from config parts.
func BuildDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
}
