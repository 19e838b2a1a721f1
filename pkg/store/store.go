// Package store is the canonical keyed store backing every dataset.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// AuditTable receives one row per cleaning operation
const AuditTable = "cleaned_on_ingress"

// Store reads and writes the canonical tables
type Store struct {
	db          *sqlx.DB
	logger      *zap.Logger
	maxPageRows int
}

// New wraps an open database handle. maxPageRows caps every page request the
// way a hosted backend caps rows per response.
func New(db *sqlx.DB, logger *zap.Logger, maxPageRows int) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPageRows <= 0 {
		maxPageRows = 1000
	}
	return &Store{db: db, logger: logger, maxPageRows: maxPageRows}
}

// DB returns the underlying handle
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// MaxPageRows returns the per-request row cap
func (s *Store) MaxPageRows() int {
	return s.maxPageRows
}

// EnsureSchema creates the canonical tables and the audit table if they don't exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ds := range model.Datasets {
		ddl := createTableSQL(ds.Metadata())
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", ds.Metadata().Table, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, s.auditTableSQL()); err != nil {
		return fmt.Errorf("failed to create %s table: %w", AuditTable, err)
	}

	s.logger.Info("Ensured canonical tables exist", zap.String("driver", s.db.DriverName()))
	return nil
}

// Begin opens a transaction
func (s *Store) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Count returns the number of rows in a dataset's table
func (s *Store) Count(ctx context.Context, ds model.Dataset) (int64, error) {
	md, err := metadataFor(ds)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+quote(md.Table)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", md.Table, err)
	}
	return n, nil
}

// Clear deletes every row of a dataset's table inside a transaction
func (s *Store) Clear(ctx context.Context, ds model.Dataset) (int64, error) {
	md, err := metadataFor(ds)
	if err != nil {
		return 0, err
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			s.rollback(tx, err)
		}
	}()

	res, err := tx.ExecContext(ctx, "DELETE FROM "+quote(md.Table))
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", md.Table, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Cleared table", zap.String("table", md.Table), zap.Int64("deleted", deleted))
	return deleted, nil
}

// rollback aborts tx after cause. A transaction the driver already ended is not an error.
func (s *Store) rollback(tx *sqlx.Tx, cause error) {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		s.logger.Error("Failed to rollback transaction",
			zap.Error(rbErr),
			zap.NamedError("cause", cause))
	}
}

// DuplicateKeys returns natural keys that occur on more than one row.
// A healthy store always returns none.
func (s *Store) DuplicateKeys(ctx context.Context, ds model.Dataset) ([]string, error) {
	md, err := metadataFor(ds)
	if err != nil {
		return nil, err
	}

	keys := quoteAll(md.PrimaryKeys)
	keyExpr := strings.Join(keys, " || '/' || ")
	query := fmt.Sprintf("SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1",
		keyExpr, quote(md.Table), strings.Join(keys, ", "))

	var dupes []string
	if err := s.db.SelectContext(ctx, &dupes, query); err != nil {
		return nil, fmt.Errorf("failed to check key uniqueness of %s: %w", md.Table, err)
	}
	return dupes, nil
}

func createTableSQL(md *model.TableMetadata) string {
	defs := make([]string, 0, len(md.Columns)+5)
	for _, col := range md.Columns {
		def := quote(col.Name) + " " + col.PgType
		if col.IsPrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs,
		quote("created_at")+" TIMESTAMP NOT NULL",
		quote("updated_at")+" TIMESTAMP NOT NULL",
		fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteAll(md.PrimaryKeys), ", ")),
	)
	for _, col := range md.Columns {
		if col.NonNegative {
			defs = append(defs, fmt.Sprintf("CHECK (%s >= 0)", quote(col.Name)))
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(md.Table), strings.Join(defs, ",\n\t"))
}

func (s *Store) auditTableSQL() string {
	id := "id BIGSERIAL PRIMARY KEY"
	if s.db.DriverName() == "sqlite3" {
		id = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s,
			batch_id TEXT NOT NULL,
			dataset TEXT NOT NULL,
			column_name TEXT NOT NULL,
			original_value TEXT,
			new_value TEXT NOT NULL,
			row_identifier TEXT NOT NULL,
			source_line INTEGER NOT NULL,
			cleaning_operation TEXT NOT NULL,
			cleaning_reason TEXT NOT NULL,
			cleaned_at TIMESTAMP NOT NULL
		)`, AuditTable, id)
}

func metadataFor(ds model.Dataset) (*model.TableMetadata, error) {
	md := ds.Metadata()
	if md == nil {
		return nil, fmt.Errorf("unknown dataset %q", ds)
	}
	return md, nil
}

func quote(name string) string {
	return pq.QuoteIdentifier(name)
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return out
}
