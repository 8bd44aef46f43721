package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoIface "github.com/billyapp/bankfeed/pkg/repositories/txcache"
	_ "modernc.org/sqlite"
)

// SQLiteRepo persists cached transaction batches keyed by requisition id.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Pragmas safe for simple single-process usage
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS transaction_cache (
    requisition_id TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    fetched_at TIMESTAMP NOT NULL
);
`)
	return err
}

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

func (r *SQLiteRepo) Get(ctx context.Context, requisitionID string) (*repoIface.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT requisition_id, data, fetched_at FROM transaction_cache WHERE requisition_id = ?`,
		requisitionID)
	var e repoIface.Entry
	if err := row.Scan(&e.RequisitionID, &e.Data, &e.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *SQLiteRepo) Set(ctx context.Context, requisitionID string, data []byte) error {
	if requisitionID == "" {
		return errors.New("empty requisition id")
	}
	// Wholesale overwrite, never a partial merge.
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transaction_cache (requisition_id, data, fetched_at) VALUES (?, ?, ?)
ON CONFLICT(requisition_id) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		requisitionID, data, time.Now().UTC())
	return err
}
