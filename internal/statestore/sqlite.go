package statestore

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/errors"
)

// SQLiteStore implements SnapshotStore using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite snapshot store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// _journal_mode=WAL: concurrent readers alongside the single writer
	// _busy_timeout=3000: wait up to 3 seconds for locks
	connStr := dbPath + "?_foreign_keys=1&mode=rwc&_journal_mode=WAL&_busy_timeout=3000"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.NewTransientf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.NewPermanentf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bucket_tick INTEGER NOT NULL UNIQUE,
		created_at INTEGER NOT NULL DEFAULT (cast(strftime('%s', 'now') as integer))
	);

	CREATE TABLE IF NOT EXISTS snapshot_objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id INTEGER NOT NULL,
		object_key TEXT NOT NULL,
		body BLOB NOT NULL,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE,
		UNIQUE(snapshot_id, object_key)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_tick ON snapshots(bucket_tick);
	CREATE INDEX IF NOT EXISTS idx_snapshot_objects_snapshot ON snapshot_objects(snapshot_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot stores the raw dataset bodies for a cache bucket in one
// transaction. Saving the same bucket twice replaces the previous objects.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, bucketTick time.Time, datasets map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewTransientf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tick := bucketTick.Unix()

	var snapshotID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM snapshots WHERE bucket_tick = ?
	`, tick).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (bucket_tick) VALUES (?)
		`, tick)
		if err != nil {
			return errors.NewTransientf("failed to insert snapshot: %w", err)
		}
		snapshotID, err = result.LastInsertId()
		if err != nil {
			return errors.NewTransientf("failed to get snapshot ID: %w", err)
		}
	} else if err != nil {
		return errors.NewTransientf("failed to query snapshot: %w", err)
	} else {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM snapshot_objects WHERE snapshot_id = ?
		`, snapshotID); err != nil {
			return errors.NewTransientf("failed to clear snapshot objects: %w", err)
		}
	}

	for key, body := range datasets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_objects (snapshot_id, object_key, body) VALUES (?, ?, ?)
		`, snapshotID, key, body); err != nil {
			return errors.NewTransientf("failed to insert snapshot object %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewTransientf("failed to commit snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves the dataset bodies for a cache bucket
func (s *SQLiteStore) GetSnapshot(ctx context.Context, bucketTick time.Time) (map[string][]byte, error) {
	var snapshotID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM snapshots WHERE bucket_tick = ?
	`, bucketTick.Unix()).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to query snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT object_key, body FROM snapshot_objects WHERE snapshot_id = ?
	`, snapshotID)
	if err != nil {
		return nil, errors.NewTransientf("failed to query snapshot objects: %w", err)
	}
	defer rows.Close()

	datasets := make(map[string][]byte)
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, errors.NewTransientf("failed to scan snapshot object: %w", err)
		}
		datasets[key] = body
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransientf("failed to read snapshot objects: %w", err)
	}

	if len(datasets) == 0 {
		return nil, ErrSnapshotNotFound
	}

	return datasets, nil
}

// Prune removes snapshots for cache buckets older than before
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE bucket_tick < ?
	`, before.Unix())
	if err != nil {
		return 0, errors.NewTransientf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
