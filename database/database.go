package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pothole-ingest-pipeline/config"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by InsertReport when a report with the
	// same fingerprint was persisted first.
	ErrAlreadyExists = errors.New("report already exists")

	// ErrStorageUnavailable is returned when the durable store cannot be
	// read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Database wraps the MySQL connection backing the report store and the
// tracking counter.
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval time.Duration = 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break
		} else {
			log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		}
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewDatabaseFromConn wraps an existing connection; used by tests.
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateTables creates the reports and tracking_counter tables if they don't
// exist.
func (d *Database) CreateTables() error {
	reports := `
	CREATE TABLE IF NOT EXISTS reports (
		fingerprint VARCHAR(64) NOT NULL PRIMARY KEY,
		tracking_id VARCHAR(24) NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		damage_type VARCHAR(32) DEFAULT '',
		severity INT DEFAULT 0,
		urgency VARCHAR(16) DEFAULT '',
		explanation TEXT,
		gps VARCHAR(64) DEFAULT '',
		unparsed BOOLEAN DEFAULT FALSE,
		raw_assessment TEXT,
		storage_ref VARCHAR(512) NOT NULL,
		owner_id VARCHAR(128) NOT NULL,
		owner_email VARCHAR(255) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'submitted',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE INDEX idx_reports_tracking_id (tracking_id),
		INDEX idx_reports_owner_id (owner_id)
	)`

	if _, err := d.db.Exec(reports); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	counter := `
	CREATE TABLE IF NOT EXISTS tracking_counter (
		id TINYINT NOT NULL PRIMARY KEY,
		value BIGINT NOT NULL
	)`

	if _, err := d.db.Exec(counter); err != nil {
		return fmt.Errorf("failed to create tracking_counter table: %w", err)
	}

	log.Info("reports and tracking_counter tables created/verified successfully")
	return nil
}

// GetDB returns the underlying sql.DB for direct queries
func (d *Database) GetDB() *sql.DB {
	return d.db
}
