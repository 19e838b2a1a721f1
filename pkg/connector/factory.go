package connector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStoreConnector opens the canonical store selected by STORE_DRIVER
func (f *ConnectorFactory) CreateStoreConnector(ctx context.Context) (DatabaseConnector, error) {
	store := f.cfg.Store
	f.logger.Info("Creating store connector", zap.String("driver", store.Driver))

	switch store.Driver {
	case config.DriverPgx, config.DriverPostgres:
		conn, err := NewPostgresConnector(ctx, store.Driver, store.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
		}
		return conn, nil
	case config.DriverSQLite:
		conn, err := NewSQLiteConnector(ctx, store.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite connector: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", store.Driver)
	}
}

// CreateSnowflakeConnector creates a new Snowflake connector
func (f *ConnectorFactory) CreateSnowflakeConnector(ctx context.Context) (*SnowflakeConnector, error) {
	if f.cfg.Snowflake == nil {
		return nil, errors.New("snowflake is not configured: set SNOWFLAKE_ACCOUNT")
	}
	f.logger.Info("Creating Snowflake connector")

	conn, err := NewSnowflakeConnector(ctx, f.cfg.Snowflake)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
	}

	return conn, nil
}
