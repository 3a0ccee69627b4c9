package patterns

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iammattholland/transfermatch/pkg/logger"

	// Register the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const createPatternsTable = `
CREATE TABLE IF NOT EXISTS transfer_patterns (
	pair_key            TEXT PRIMARY KEY,
	confidence          REAL NOT NULL,
	usage_count         INTEGER NOT NULL DEFAULT 0,
	auto_detected_count INTEGER NOT NULL DEFAULT 0,
	success_count       INTEGER NOT NULL DEFAULT 0,
	rejected_count      INTEGER NOT NULL DEFAULT 0,
	last_rejected_at    TEXT,
	ranges_learned      INTEGER NOT NULL DEFAULT 0,
	amount_min          TEXT NOT NULL DEFAULT '0',
	amount_max          TEXT NOT NULL DEFAULT '0',
	hours_min           REAL NOT NULL DEFAULT 0,
	hours_max           REAL NOT NULL DEFAULT 0,
	payee_substrings    TEXT,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
)`

// SQLiteStore persists transfer patterns in a SQLite database. A
// malformed stored row is treated as "no pattern" rather than a hard
// error: the engine is advisory and degrades instead of failing.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLiteStore opens (and if necessary initializes) a pattern
// database at the given path. Use ":memory:" for an ephemeral store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern database: %w", err)
	}

	if _, err := db.Exec(createPatternsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize pattern schema: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		log: logger.WithComponent("pattern-store"),
	}, nil
}

// Get returns the pattern for a pair key, or (nil, nil) if absent or
// unreadable
func (s *SQLiteStore) Get(ctx context.Context, pairKey string) (*TransferPattern, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pair_key, confidence, usage_count, auto_detected_count,
			success_count, rejected_count, last_rejected_at, ranges_learned,
			amount_min, amount_max, hours_min, hours_max, payee_substrings,
			created_at, updated_at
		FROM transfer_patterns
		WHERE pair_key = ?`, pairKey)

	pattern, err := s.scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		// Malformed pattern rows degrade to "no pattern".
		s.log.WithError(err).WithField("pair_key", pairKey).Warn("ignoring unreadable pattern row")
		return nil, nil
	}
	return pattern, nil
}

// List returns all stored patterns ordered by pair key, skipping
// unreadable rows
func (s *SQLiteStore) List(ctx context.Context) ([]*TransferPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_key, confidence, usage_count, auto_detected_count,
			success_count, rejected_count, last_rejected_at, ranges_learned,
			amount_min, amount_max, hours_min, hours_max, payee_substrings,
			created_at, updated_at
		FROM transfer_patterns
		ORDER BY pair_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*TransferPattern
	for rows.Next() {
		pattern, err := s.scanPattern(rows)
		if err != nil {
			s.log.WithError(err).Warn("ignoring unreadable pattern row")
			continue
		}
		result = append(result, pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}
	return result, nil
}

// Save upserts a pattern
func (s *SQLiteStore) Save(ctx context.Context, pattern *TransferPattern) error {
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	var substringsJSON *string
	if len(pattern.PayeeSubstrings) > 0 {
		data, err := json.Marshal(pattern.PayeeSubstrings)
		if err != nil {
			return fmt.Errorf("failed to marshal payee substrings: %w", err)
		}
		str := string(data)
		substringsJSON = &str
	}

	var lastRejected *string
	if pattern.LastRejectedAt != nil {
		str := pattern.LastRejectedAt.UTC().Format(time.RFC3339Nano)
		lastRejected = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_patterns (
			pair_key, confidence, usage_count, auto_detected_count,
			success_count, rejected_count, last_rejected_at, ranges_learned,
			amount_min, amount_max, hours_min, hours_max, payee_substrings,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			confidence = excluded.confidence,
			usage_count = excluded.usage_count,
			auto_detected_count = excluded.auto_detected_count,
			success_count = excluded.success_count,
			rejected_count = excluded.rejected_count,
			last_rejected_at = excluded.last_rejected_at,
			ranges_learned = excluded.ranges_learned,
			amount_min = excluded.amount_min,
			amount_max = excluded.amount_max,
			hours_min = excluded.hours_min,
			hours_max = excluded.hours_max,
			payee_substrings = excluded.payee_substrings,
			updated_at = excluded.updated_at`,
		pattern.PairKey, pattern.Confidence, pattern.UsageCount, pattern.AutoDetectedCount,
		pattern.SuccessCount, pattern.RejectedCount, lastRejected, pattern.RangesLearned,
		pattern.AmountMin.String(), pattern.AmountMax.String(), pattern.HoursMin, pattern.HoursMax,
		substringsJSON,
		pattern.CreatedAt.UTC().Format(time.RFC3339Nano), pattern.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern %s: %w", pattern.PairKey, err)
	}
	return nil
}

// Delete removes a pattern; deleting a missing pattern is not an error
func (s *SQLiteStore) Delete(ctx context.Context, pairKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transfer_patterns WHERE pair_key = ?`, pairKey); err != nil {
		return fmt.Errorf("failed to delete pattern %s: %w", pairKey, err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanPattern(row rowScanner) (*TransferPattern, error) {
	var (
		pattern        TransferPattern
		lastRejected   sql.NullString
		substringsJSON sql.NullString
		amountMin      string
		amountMax      string
		createdAt      string
		updatedAt      string
	)

	err := row.Scan(
		&pattern.PairKey, &pattern.Confidence, &pattern.UsageCount, &pattern.AutoDetectedCount,
		&pattern.SuccessCount, &pattern.RejectedCount, &lastRejected, &pattern.RangesLearned,
		&amountMin, &amountMax, &pattern.HoursMin, &pattern.HoursMax, &substringsJSON,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pattern.AmountMin, err = decimal.NewFromString(amountMin); err != nil {
		return nil, fmt.Errorf("invalid amount_min %q: %w", amountMin, err)
	}
	if pattern.AmountMax, err = decimal.NewFromString(amountMax); err != nil {
		return nil, fmt.Errorf("invalid amount_max %q: %w", amountMax, err)
	}

	if lastRejected.Valid {
		at, err := time.Parse(time.RFC3339Nano, lastRejected.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_rejected_at %q: %w", lastRejected.String, err)
		}
		pattern.LastRejectedAt = &at
	}

	if substringsJSON.Valid && substringsJSON.String != "" {
		if err := json.Unmarshal([]byte(substringsJSON.String), &pattern.PayeeSubstrings); err != nil {
			return nil, fmt.Errorf("invalid payee_substrings: %w", err)
		}
	}

	if pattern.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if pattern.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return &pattern, nil
}
