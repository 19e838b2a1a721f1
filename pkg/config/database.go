package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// Store drivers
const (
	DriverPgx      = "pgx"      // PostgreSQL through jackc/pgx
	DriverPostgres = "postgres" // PostgreSQL through lib/pq
	DriverSQLite   = "sqlite3"  // Embedded store for development and tests
)

// StoreConfig selects and configures the canonical store
type StoreConfig struct {
	Driver   string
	Postgres *PostgresConfig
	SQLite   *SQLiteConfig

	// MaxPageRows caps the rows returned by a single page request
	MaxPageRows int
}

// PoolConfig holds database/sql pool settings shared by every connector
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	PoolConfig

	// Statement timeout
	StatementTimeout time.Duration
}

// SQLiteConfig holds the embedded store settings
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// SnowflakeConfig holds Snowflake connection parameters for warehouse syncs
type SnowflakeConfig struct {
	User          string
	Password      string
	Account       string
	Warehouse     string
	Database      string
	Schema        string
	Role          string
	Authenticator gosnowflake.AuthType
	PoolConfig

	// Query timeout and page size for batch reads
	QueryTimeout time.Duration
	BatchSize    int
}

// LoadStoreConfig loads the canonical store configuration from environment variables
func LoadStoreConfig() (*StoreConfig, error) {
	cfg := &StoreConfig{
		Driver:      getEnv("STORE_DRIVER", DriverPgx),
		MaxPageRows: getEnvAsInt("STORE_MAX_PAGE_ROWS", 1000),
	}

	switch cfg.Driver {
	case DriverPgx, DriverPostgres:
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, err
		}
		cfg.Postgres = pgConfig
	case DriverSQLite:
		cfg.SQLite = &SQLiteConfig{
			Path:        getEnv("SQLITE_PATH", "enrollment.db"),
			BusyTimeout: time.Duration(getEnvAsInt("SQLITE_BUSY_TIMEOUT_MS", 5000)) * time.Millisecond,
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Driver)
	}

	return cfg, nil
}

// Validate checks the store settings
func (c *StoreConfig) Validate() error {
	if c.MaxPageRows <= 0 {
		return errors.New("store max page rows must be positive")
	}
	switch c.Driver {
	case DriverPgx, DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required")
		}
	case DriverSQLite:
		if c.SQLite == nil || c.SQLite.Path == "" {
			return errors.New("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Driver)
	}
	return nil
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() (*PostgresConfig, error) {
	env, err := requireEnv("POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB")
	if err != nil {
		return nil, err
	}

	return &PostgresConfig{
		Host:             getEnv("POSTGRES_HOST", "localhost"),
		Port:             getEnvAsInt("POSTGRES_PORT", 5432),
		User:             env["POSTGRES_USER"],
		Password:         env["POSTGRES_PASSWORD"],
		Database:         env["POSTGRES_DB"],
		SSLMode:          getEnv("POSTGRES_SSLMODE", "disable"),
		PoolConfig:       loadPool("POSTGRES", PoolConfig{MaxOpenConns: 25, MaxIdleConns: 10, ConnMaxLifetime: 30 * time.Minute, ConnMaxIdleTime: 10 * time.Minute}),
		StatementTimeout: getEnvAsSeconds("POSTGRES_STATEMENT_TIMEOUT_SECONDS", time.Minute),
	}, nil
}

// LoadSnowflakeConfig loads the warehouse source configuration from environment variables
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	env, err := requireEnv("SNOWFLAKE_USER", "SNOWFLAKE_ACCOUNT", "SNOWFLAKE_WAREHOUSE", "SNOWFLAKE_DATABASE")
	if err != nil {
		return nil, err
	}

	cfg := &SnowflakeConfig{
		User:          env["SNOWFLAKE_USER"],
		Password:      os.Getenv("SNOWFLAKE_PASSWORD"),
		Account:       env["SNOWFLAKE_ACCOUNT"],
		Warehouse:     env["SNOWFLAKE_WAREHOUSE"],
		Database:      env["SNOWFLAKE_DATABASE"],
		Schema:        getEnv("SNOWFLAKE_SCHEMA", "PUBLIC"),
		Role:          getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator: parseAuthenticator(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake")),
		PoolConfig:    loadPool("SNOWFLAKE", PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: 10 * time.Minute, ConnMaxIdleTime: 5 * time.Minute}),
		QueryTimeout:  getEnvAsSeconds("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 5*time.Minute),
		BatchSize:     getEnvAsInt("SNOWFLAKE_BATCH_SIZE", 5000),
	}

	// Key pair, OAuth and browser logins carry no password
	if cfg.Password == "" && cfg.Authenticator == gosnowflake.AuthTypeSnowflake {
		return nil, errors.New("SNOWFLAKE_PASSWORD environment variable is required")
	}

	return cfg, nil
}

// loadPool reads <PREFIX>_MAX_OPEN_CONNS and friends over the given defaults
func loadPool(prefix string, def PoolConfig) PoolConfig {
	return PoolConfig{
		MaxOpenConns:    getEnvAsInt(prefix+"_MAX_OPEN_CONNS", def.MaxOpenConns),
		MaxIdleConns:    getEnvAsInt(prefix+"_MAX_IDLE_CONNS", def.MaxIdleConns),
		ConnMaxLifetime: getEnvAsSeconds(prefix+"_CONN_MAX_LIFETIME_SECONDS", def.ConnMaxLifetime),
		ConnMaxIdleTime: getEnvAsSeconds(prefix+"_CONN_MAX_IDLE_TIME_SECONDS", def.ConnMaxIdleTime),
	}
}

// requireEnv returns the values of keys, naming every missing one in the error
func requireEnv(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	var missing []string
	for _, k := range keys {
		v := os.Getenv(k)
		if v == "" {
			missing = append(missing, k)
			continue
		}
		values[k] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return values, nil
}

func parseAuthenticator(name string) gosnowflake.AuthType {
	switch name {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// ConnectionString returns the sqlite DSN with foreign keys and a busy timeout
func (c *SQLiteConfig) ConnectionString() string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", c.Path, c.BusyTimeout.Milliseconds())
}
