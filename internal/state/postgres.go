package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/deusflow/newspulse/internal/logger"
)

// PostgresStore keeps the watermarks in a two-column-keyed table, for
// deployments where the working directory is not durable.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Load creates the watermark table if it doesn't exist yet.
func (s *PostgresStore) Load() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS publish_state (
			source       TEXT NOT NULL,
			category     TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (source, category)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create publish_state table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(source, category string) (time.Time, bool) {
	var published time.Time
	err := s.db.QueryRow(
		`SELECT published_at FROM publish_state WHERE source = $1 AND category = $2`,
		source, category,
	).Scan(&published)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Warn("failed to read watermark, treating as absent", "source", source, "category", category, "error", err)
		}
		return time.Time{}, false
	}
	return published.UTC(), true
}

func (s *PostgresStore) Update(source, category string, published time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO publish_state (source, category, published_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (source, category)
		DO UPDATE SET published_at = EXCLUDED.published_at`,
		source, category, published.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update watermark: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
