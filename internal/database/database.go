package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"megbot/internal/models"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = "file::memory:"

// Config holds DB configuration
type Config struct {
	Path     string
	LogLevel logger.LogLevel
	// Logger receives GORM output. Nil falls back to the std log package.
	Logger wailslogger.Logger
}

// Init opens a SQLite DB and runs migrations
func Init(cfg Config) (*gorm.DB, error) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}
	if strings.TrimSpace(cfg.Path) == "" {
		cfg.Path = GetDefaultDBPath()
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", cfg.Path)
	if cfg.Path == MemoryPath {
		dsn = cfg.Path + "?cache=private"
	}

	gormLogger := logger.New(
		log.New(loggerWriter{out: cfg.Logger}, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps writes serialized and an in-memory DB alive.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// migrate runs all automigrations. Keep the model list in one place.
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.StoredRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// loggerWriter satisfies io.Writer for the GORM logger and forwards each line
// to the application logger when one is configured.
type loggerWriter struct {
	out wailslogger.Logger
}

func (w loggerWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if w.out != nil {
		// The GORM logger only writes at Warn or above with the default level.
		w.out.Warning("gorm: " + msg)
		return len(p), nil
	}
	log.Printf("%s", msg)
	return len(p), nil
}
