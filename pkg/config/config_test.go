package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigSQLiteDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite3")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "test.db"))
	t.Setenv("SNOWFLAKE_ACCOUNT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 1000, cfg.Store.MaxPageRows)
	assert.Equal(t, 1000, cfg.ScanPageSize)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Nil(t, cfg.Snowflake)
	assert.Contains(t, cfg.Store.SQLite.ConnectionString(), "_busy_timeout=5000")
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "STORE_DRIVER=pgx\nPOSTGRES_USER=ingress\nPOSTGRES_PASSWORD=secret\nPOSTGRES_DB=enrollment\nSCAN_PAGE_SIZE=250\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	for _, key := range []string{"STORE_DRIVER", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "SCAN_PAGE_SIZE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("SNOWFLAKE_ACCOUNT", "")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, DriverPgx, cfg.Store.Driver)
	assert.Equal(t, 250, cfg.ScanPageSize)
	require.NotNil(t, cfg.Store.Postgres)
	assert.Equal(t, "host=localhost port=5432 user=ingress password=secret dbname=enrollment sslmode=disable",
		cfg.Store.Postgres.ConnectionString())
}

func TestLoadConfigMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite3")
	t.Setenv("SNOWFLAKE_ACCOUNT", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRequiresPostgresCredentials(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_USER", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Store:          &StoreConfig{Driver: DriverSQLite, SQLite: &SQLiteConfig{Path: "x.db"}, MaxPageRows: 10},
		ScanPageSize:   10,
		MaxUploadBytes: 1,
		LogFormat:      "console",
	}
	require.NoError(t, cfg.Validate())

	cfg.ScanPageSize = 0
	assert.Error(t, cfg.Validate())

	cfg.ScanPageSize = 10
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.Validate())
}

func TestGetEnvAsStringSlice(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, getEnvAsStringSlice("CORS_ORIGINS", nil))
}

func TestRequireEnvNamesEveryMissingKey(t *testing.T) {
	t.Setenv("SNOWFLAKE_USER", "loader")
	t.Setenv("SNOWFLAKE_ACCOUNT", "")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "")

	_, err := requireEnv("SNOWFLAKE_USER", "SNOWFLAKE_ACCOUNT", "SNOWFLAKE_WAREHOUSE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNOWFLAKE_ACCOUNT, SNOWFLAKE_WAREHOUSE")
	assert.NotContains(t, err.Error(), "SNOWFLAKE_USER")
}

func TestLoadPoolOverridesDefaults(t *testing.T) {
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "40")
	t.Setenv("POSTGRES_CONN_MAX_IDLE_TIME_SECONDS", "90")

	pool := loadPool("POSTGRES", PoolConfig{MaxOpenConns: 25, MaxIdleConns: 10, ConnMaxLifetime: time.Minute})
	assert.Equal(t, 40, pool.MaxOpenConns)
	assert.Equal(t, 10, pool.MaxIdleConns)
	assert.Equal(t, time.Minute, pool.ConnMaxLifetime)
	assert.Equal(t, 90*time.Second, pool.ConnMaxIdleTime)
}
