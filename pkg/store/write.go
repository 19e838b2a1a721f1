package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// auditChunk bounds the rows per multi-row audit insert
const auditChunk = 500

// statements holds the named SQL used to reconcile one dataset
type statements struct {
	exists string
	insert string
	update string
}

var datasetStatements = func() map[model.Dataset]statements {
	out := make(map[model.Dataset]statements, len(model.Datasets))
	for _, ds := range model.Datasets {
		out[ds] = buildStatements(ds.Metadata())
	}
	return out
}()

func buildStatements(md *model.TableMetadata) statements {
	var where []string
	for _, k := range md.PrimaryKeys {
		where = append(where, fmt.Sprintf("%s = :%s", quote(k), k))
	}
	whereSQL := strings.Join(where, " AND ")

	cols := md.ColumnNames()
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
	}

	var sets []string
	for _, c := range md.NonKeyColumns() {
		sets = append(sets, fmt.Sprintf("%s = :%s", quote(c), c))
	}

	return statements{
		exists: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", quote(md.Table), whereSQL),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(md.Table), strings.Join(quoteAll(cols), ", "), strings.Join(params, ", ")),
		update: fmt.Sprintf("UPDATE %s SET %s WHERE %s", quote(md.Table), strings.Join(sets, ", "), whereSQL),
	}
}

// Exists probes for a row with the record's natural key
func Exists(ctx context.Context, tx *sqlx.Tx, rec model.Record) (bool, error) {
	stmts, ok := datasetStatements[rec.Dataset()]
	if !ok {
		return false, fmt.Errorf("unknown dataset %q", rec.Dataset())
	}

	query, args, err := sqlx.Named(stmts.exists, rec)
	if err != nil {
		return false, fmt.Errorf("failed to bind key of %s: %w", rec.KeyString(), err)
	}

	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("failed to probe %s: %w", rec.KeyString(), err)
	}
	return n > 0, nil
}

// Insert adds a new row
func Insert(ctx context.Context, tx *sqlx.Tx, rec model.Record) error {
	stmts, ok := datasetStatements[rec.Dataset()]
	if !ok {
		return fmt.Errorf("unknown dataset %q", rec.Dataset())
	}
	if _, err := tx.NamedExecContext(ctx, stmts.insert, rec); err != nil {
		return fmt.Errorf("failed to insert %s: %w", rec.KeyString(), err)
	}
	return nil
}

// Update overwrites every non-key column and updated_at of an existing row.
// created_at is left untouched.
func Update(ctx context.Context, tx *sqlx.Tx, rec model.Record) error {
	stmts, ok := datasetStatements[rec.Dataset()]
	if !ok {
		return fmt.Errorf("unknown dataset %q", rec.Dataset())
	}
	res, err := tx.NamedExecContext(ctx, stmts.update, rec)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rec.KeyString(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("failed to update %s: %d rows affected", rec.KeyString(), n)
	}
	return nil
}

// RecordCleaningOperations writes audit rows for a batch
func RecordCleaningOperations(ctx context.Context, tx *sqlx.Tx, ops []model.CleaningOperation) error {
	if len(ops) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(batch_id, dataset, column_name, original_value, new_value,
		 row_identifier, source_line, cleaning_operation, cleaning_reason, cleaned_at)
		VALUES (:batch_id, :dataset, :column_name, :original_value, :new_value,
		 :row_identifier, :source_line, :cleaning_operation, :cleaning_reason, :cleaned_at)`, AuditTable)

	for start := 0; start < len(ops); start += auditChunk {
		end := start + auditChunk
		if end > len(ops) {
			end = len(ops)
		}
		if _, err := tx.NamedExecContext(ctx, query, ops[start:end]); err != nil {
			return fmt.Errorf("failed to insert cleaning operations: %w", err)
		}
	}
	return nil
}
