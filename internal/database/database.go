package database

import (
	"fmt"
	"log"
	"time"

	"feedsync/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// The journal sees one insert and one update per mutation, so a small pool
// is enough.
const (
	maxOpenConns    = 4
	connMaxIdleTime = 5 * time.Minute
)

func Connect(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	log.Printf("Connected to database: host=%s db=%s", cfg.DBHost, cfg.DBName)
	return db, nil
}
