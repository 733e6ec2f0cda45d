package database

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database keeps the dispatch history of the cameras.
type Database struct {
	DB *sql.DB
}

// New opens the connection and checks it.
func New(ctx context.Context, dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Init creates the required tables if they don't exist
func (d *Database) Init(ctx context.Context) error {
	createTables := `
	CREATE TABLE IF NOT EXISTS dispatch_attempts (
		id TEXT PRIMARY KEY,
		camera INTEGER NOT NULL,
		code TEXT NOT NULL,
		param TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		elapsed_us BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS dispatch_attempts_camera_created_idx
		ON dispatch_attempts (camera, created_at DESC);
	`

	_, err := d.DB.ExecContext(ctx, createTables)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}
