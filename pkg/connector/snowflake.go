package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/config"
)

const (
	snowflakeApplication = "enrollment-ingress"
	syncQueryTag         = "enrollment-ingress:sync"
	defaultWarehousePage = 5000
)

// SnowflakeConnector reads source tables from the Snowflake warehouse
type SnowflakeConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// snowflakeDSN renders cfg as a gosnowflake DSN tagged with our application name
func snowflakeDSN(cfg *config.SnowflakeConfig) (string, error) {
	return sf.DSN(&sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
		Application:   snowflakeApplication,
	})
}

// NewSnowflakeConnector opens and pings a pooled Snowflake handle
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig) (*SnowflakeConnector, error) {
	logger := zap.L().Named("snowflake").With(
		zap.String("account", cfg.Account),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse))
	logger.Info("Opening warehouse connection",
		zap.String("user", cfg.User),
		zap.String("schema", cfg.Schema),
		zap.String("role", cfg.Role))

	dsn, err := snowflakeDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid Snowflake settings: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Snowflake handle: %w", err)
	}
	ApplyPool(db, cfg.PoolConfig)

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("snowflake unreachable: %w", err)
	}

	LogConnectionStats(logger, cfg.Database, db)
	return &SnowflakeConnector{db: db, logger: logger, cfg: cfg}, nil
}

// DB returns the underlying database handle
func (c *SnowflakeConnector) DB() *sqlx.DB {
	return c.db
}

func (c *SnowflakeConnector) DriverName() string {
	return "snowflake"
}

// Validate checks that the session landed in the configured database
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse sql.NullString
	row := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()")
	if err := row.Scan(&role, &database, &warehouse); err != nil {
		return fmt.Errorf("failed to read Snowflake session: %w", err)
	}

	c.logger.Info("Warehouse session ready",
		zap.String("session_role", role.String),
		zap.String("session_database", database.String),
		zap.String("session_warehouse", warehouse.String))

	if !strings.EqualFold(database.String, c.cfg.Database) {
		return fmt.Errorf("session database is %s, expected %s", database.String, c.cfg.Database)
	}
	return nil
}

func (c *SnowflakeConnector) Close() error {
	LogConnectionStats(c.logger, c.cfg.Database, c.db)
	c.logger.Info("Closing warehouse connection")
	return c.db.Close()
}

// BatchQuery reads query in LIMIT/OFFSET pages, handing each row to processor.
// A short page ends the read.
func (c *SnowflakeConnector) BatchQuery(
	ctx context.Context,
	query string,
	batchSize int,
	processor func(*sql.Rows) error,
) error {
	pageSize := firstPositive(batchSize, c.cfg.BatchSize, defaultWarehousePage)
	ctx = sf.WithQueryTag(ctx, syncQueryTag)

	total, pages := 0, 0
	for {
		n, err := c.fetchPage(ctx, fmt.Sprintf("%s LIMIT %d OFFSET %d", query, pageSize, total), processor)
		if err != nil {
			return fmt.Errorf("warehouse page at offset %d: %w", total, err)
		}
		pages++
		total += n
		c.logger.Debug("Fetched warehouse page", zap.Int("page", pages), zap.Int("rows", n))
		if n < pageSize {
			break
		}
	}

	c.logger.Info("Warehouse read complete", zap.Int("rows", total), zap.Int("pages", pages))
	return nil
}

// fetchPage runs one page query under the configured timeout
func (c *SnowflakeConnector) fetchPage(ctx context.Context, query string, processor func(*sql.Rows) error) (int, error) {
	timeout := c.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := c.db.QueryContext(pageCtx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := processor(rows); err != nil {
			return n, fmt.Errorf("row %d: %w", n+1, err)
		}
		n++
	}
	return n, rows.Err()
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
