package database

import (
	"fmt"
	"strings"
	"time"

	"adlink-platform/internal/models"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.SiteSettings{},
		&models.Campaign{},
		&models.Creative{},
		&models.Placement{},
		&models.Assignment{},
		&models.Event{},
		&models.DailyRollup{},
		&models.AffiliateSource{},
		&models.AffiliateLink{},
		&models.LinkableEntity{},
		&models.LinkSuggestion{},
	}
}

// Connect opens PostgreSQL for postgres:// DSNs and the pure-Go SQLite driver otherwise.
func Connect(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	if IsPostgres(dsn) {
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func SetupDatabase(databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := Connect(databaseURL, logLevel)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if IsPostgres(databaseURL) {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	} else {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GormLogLevel maps the service log level onto gorm's logger.
func GormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
