// Package repository provides the data access layer using GORM.
package repository

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jmlago/habitloop/internal/config"
	"github.com/jmlago/habitloop/internal/models"
	"github.com/jmlago/habitloop/pkg/logger"
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
	driver string
}

// NewDB opens a database connection for the configured driver. SQLite is the
// default for single-user deployments; PostgreSQL is available for hosted
// ones and uses versioned SQL migrations instead of AutoMigrate.
func NewDB(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	var gormLogLevel gormlogger.LogLevel
	switch log.GetLogger().GetLevel() {
	case 0: // debug
		gormLogLevel = gormlogger.Info
	default:
		gormLogLevel = gormlogger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	}

	switch cfg.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.SQLite.Path), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		db.Exec("PRAGMA foreign_keys = ON")

		log.Info().Str("path", cfg.SQLite.Path).Msg("Connected to SQLite")
		return &DB{DB: db, driver: "sqlite"}, nil

	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Database,
			cfg.Postgres.SSLMode,
		)
		db, err := gorm.Open(postgres.Open(dsn), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)

		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		log.Info().
			Str("host", cfg.Postgres.Host).
			Int("port", cfg.Postgres.Port).
			Str("database", cfg.Postgres.Database).
			Msg("Connected to PostgreSQL")
		return &DB{DB: db, driver: "postgres"}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate brings the schema up to date. SQLite uses gorm AutoMigrate;
// PostgreSQL runs the embedded versioned SQL migrations.
func (db *DB) Migrate() error {
	if db.driver == "postgres" {
		return db.runPostgresMigrations()
	}
	return db.AutoMigrate()
}

// AutoMigrate runs gorm schema migration for all models.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.Habit{},
		&models.Goal{},
		&models.GoalHabit{},
		&models.CompletionLog{},
		&models.StreakState{},
		&models.UnlockedAchievement{},
		&models.AchievementProgress{},
	)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
