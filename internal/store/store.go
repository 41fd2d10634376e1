// Package store persists run history in PostgreSQL: one row per finished
// run, holding the summary and metrics for auditing.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/deidscan/deidscan/internal/logger"
	"github.com/deidscan/deidscan/internal/pii"
)

// ErrNotFound is returned when a run ID has no history row.
var ErrNotFound = errors.New("run not found")

// Config contains database configuration
type Config struct {
	URL             string        `yaml:"url" mapstructure:"url"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// RunRecord is one persisted run.
type RunRecord struct {
	RunID         string            `db:"run_id" json:"run_id"`
	SourceFormat  string            `db:"source_format" json:"source_format"`
	RowsProcessed int               `db:"rows_processed" json:"rows_processed"`
	TotalMatches  int               `db:"total_matches" json:"total_matches"`
	MatchesJSON   []byte            `db:"matches" json:"-"`
	MetricsJSON   []byte            `db:"metrics" json:"-"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	Matches       pii.Counts        `db:"-" json:"matches"`
	Metrics       []pii.MetricEntry `db:"-" json:"metrics,omitempty"`
}

// Store handles run history persistence.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	source_format  TEXT NOT NULL DEFAULT '',
	rows_processed INTEGER NOT NULL,
	total_matches  INTEGER NOT NULL,
	matches        JSONB NOT NULL,
	metrics        JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);
`

// NewStore connects to the database and ensures the schema exists.
func NewStore(config *Config, log *logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		logger: log.WithComponent("run-store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	log.Info("Run store initialized",
		zap.String("database_url", maskDatabaseURL(config.URL)),
		zap.Int("max_connections", config.MaxConnections),
	)

	return store, nil
}

// initialize pings the database and applies the schema.
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// InsertRun records one finished run.
func (s *Store) InsertRun(ctx context.Context, record *RunRecord) error {
	matches, err := json.Marshal(record.Matches)
	if err != nil {
		return fmt.Errorf("failed to marshal match counts: %w", err)
	}

	var metrics []byte
	if record.Metrics != nil {
		metrics, err = json.Marshal(record.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
	}

	query := `
		INSERT INTO runs (run_id, source_format, rows_processed, total_matches, matches, metrics)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err = s.db.QueryRowContext(ctx, query,
		record.RunID,
		record.SourceFormat,
		record.RowsProcessed,
		record.TotalMatches,
		matches,
		nullableJSON(metrics),
	).Scan(&record.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to insert run", zap.String("run_id", record.RunID), zap.Error(err))
		return fmt.Errorf("failed to insert run: %w", err)
	}

	s.logger.Debug("Run recorded",
		zap.String("run_id", record.RunID),
		zap.Int("rows", record.RowsProcessed),
		zap.Int("matches", record.TotalMatches),
	)
	return nil
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var record RunRecord
	query := `
		SELECT run_id, source_format, rows_processed, total_matches, matches, metrics, created_at
		FROM runs WHERE run_id = $1`

	err := s.db.GetContext(ctx, &record, query, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	if err := record.decode(); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []*RunRecord
	query := `
		SELECT run_id, source_format, rows_processed, total_matches, matches, metrics, created_at
		FROM runs ORDER BY created_at DESC LIMIT $1`

	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	for _, record := range records {
		if err := record.decode(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Ping tests the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// decode unpacks the JSONB columns into their typed fields.
func (r *RunRecord) decode() error {
	if len(r.MatchesJSON) > 0 {
		if err := json.Unmarshal(r.MatchesJSON, &r.Matches); err != nil {
			return fmt.Errorf("failed to unmarshal match counts for run %s: %w", r.RunID, err)
		}
	}
	if len(r.MetricsJSON) > 0 {
		if err := json.Unmarshal(r.MetricsJSON, &r.Metrics); err != nil {
			return fmt.Errorf("failed to unmarshal metrics for run %s: %w", r.RunID, err)
		}
	}
	return nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}

// maskDatabaseURL masks the password in a database URL for logging.
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
