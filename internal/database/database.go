package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database, used by tests
const MemoryPath = ":memory:"

type DB struct {
	*sql.DB
	logger *zap.Logger
}

func New(storagePath string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", storagePath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if storagePath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", storagePath))
	return database, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		// Single-row activation of this device
		`CREATE TABLE IF NOT EXISTS activation (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			subject_id INTEGER NOT NULL,
			display_name TEXT NOT NULL,
			token TEXT NOT NULL,
			device_id TEXT NOT NULL,
			activated_at INTEGER NOT NULL
		)`,
		// Activities that failed to sync
		`CREATE TABLE IF NOT EXISTS pending_activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tracking_id INTEGER NOT NULL,
			activity_data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			retry_count INTEGER DEFAULT 0,
			last_attempt INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_activities_tracking ON pending_activities(tracking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_activities_created ON pending_activities(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Debug("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.logger.Info("Database connection closed")
	return nil
}
