// Package source reads dataset rows from the Snowflake warehouse.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/converter"
	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// BatchQuerier pages through a query, calling processor for every row.
// connector.SnowflakeConnector satisfies it.
type BatchQuerier interface {
	BatchQuery(ctx context.Context, query string, batchSize int, processor func(*sql.Rows) error) error
}

// MissingColumnsError reports required headers the warehouse table lacks
type MissingColumnsError struct {
	Table   string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("warehouse table %s is missing columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// WarehouseSource serves the rows of one warehouse table as raw rows. The
// table is read fully by Load before Next is called.
type WarehouseSource struct {
	querier   BatchQuerier
	converter *converter.TypeConverter
	logger    *zap.Logger
	md        *model.TableMetadata
	table     string
	batchSize int

	rows []model.RawRow
	pos  int
}

// NewWarehouseSource creates a source for table, which must be a qualified
// unquoted name such as ANALYTICS.ENROLLMENTS
func NewWarehouseSource(
	querier BatchQuerier,
	conv *converter.TypeConverter,
	ds model.Dataset,
	table string,
	batchSize int,
	logger *zap.Logger,
) (*WarehouseSource, error) {
	md := ds.Metadata()
	if md == nil {
		return nil, fmt.Errorf("unknown dataset %q", ds)
	}
	if !converter.ValidQualifiedName(table) {
		return nil, fmt.Errorf("invalid warehouse table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarehouseSource{
		querier:   querier,
		converter: conv,
		logger:    logger,
		md:        md,
		table:     table,
		batchSize: batchSize,
	}, nil
}

// Query returns the statement paged by Load. Ordering by the natural key keeps
// LIMIT/OFFSET pages stable.
func (s *WarehouseSource) Query() string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		s.table, strings.Join(converter.KeyHeaders(s.md), ", "))
}

// Load reads every page of the table into memory
func (s *WarehouseSource) Load(ctx context.Context) error {
	var (
		mapping *converter.ColumnMapping
		line    int
	)
	s.rows = s.rows[:0]
	s.pos = 0

	err := s.querier.BatchQuery(ctx, s.Query(), s.batchSize, func(rows *sql.Rows) error {
		if mapping == nil {
			columns, err := rows.Columns()
			if err != nil {
				return fmt.Errorf("failed to read warehouse columns: %w", err)
			}
			m := s.converter.MapColumns(columns, s.md)
			if len(m.Missing) > 0 {
				return &MissingColumnsError{Table: s.table, Missing: m.Missing}
			}
			mapping = &m
		}

		values := make([]interface{}, len(mapping.Headers))
		ptrs := make([]interface{}, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan warehouse row: %w", err)
		}

		line++
		row := model.RawRow{Line: line, Fields: make(map[string]string, len(values))}
		for i, header := range mapping.Headers {
			if header == "" {
				continue
			}
			raw, err := s.converter.ToRaw(values[i])
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", line, header, err)
			}
			row.Fields[header] = raw
		}
		s.rows = append(s.rows, row)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Loaded warehouse table",
		zap.String("table", s.table),
		zap.String("dataset", string(s.md.Dataset)),
		zap.Int("rows", len(s.rows)))
	return nil
}

// Next returns the next loaded row, or io.EOF
func (s *WarehouseSource) Next() (model.RawRow, error) {
	if s.pos >= len(s.rows) {
		return model.RawRow{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Len returns the number of loaded rows
func (s *WarehouseSource) Len() int {
	return len(s.rows)
}
