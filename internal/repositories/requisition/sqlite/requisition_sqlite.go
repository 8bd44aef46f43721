package sqlite

import (
	"context"
	"database/sql"
	"errors"

	repoIface "github.com/billyapp/bankfeed/pkg/repositories/requisition"
	_ "modernc.org/sqlite"
)

// SQLiteRepo persists the reference→requisition mapping.
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
CREATE TABLE IF NOT EXISTS requisition_mappings (
    reference_id TEXT PRIMARY KEY,
    requisition_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_mappings_requisition_id ON requisition_mappings(requisition_id);
`)
	return err
}

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

func (r *SQLiteRepo) SaveMapping(ctx context.Context, referenceID, requisitionID string) error {
	if referenceID == "" || requisitionID == "" {
		return errors.New("empty reference or requisition id")
	}
	// Append-only: a reference is bound once, re-saving it is a no-op.
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO requisition_mappings (reference_id, requisition_id) VALUES (?, ?)`,
		referenceID, requisitionID)
	return err
}

func (r *SQLiteRepo) RequisitionIDByReference(ctx context.Context, referenceID string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT requisition_id FROM requisition_mappings WHERE reference_id = ?`, referenceID)
	var requisitionID string
	if err := row.Scan(&requisitionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return requisitionID, true, nil
}

func (r *SQLiteRepo) AnyRequisitionID(ctx context.Context) (string, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT requisition_id FROM requisition_mappings ORDER BY created_at LIMIT 1`)
	var requisitionID string
	if err := row.Scan(&requisitionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return requisitionID, true, nil
}
