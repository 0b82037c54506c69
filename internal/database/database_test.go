// Package database provides database connectivity and management for the paper search service.
package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly/paper-search-service/internal/config"
)

// TestDBTX_Interface verifies that DBTX interface is properly defined.
// This test ensures the interface can be used for both pool and transaction operations.
func TestDBTX_Interface(t *testing.T) {
	t.Run("DBTX interface is properly defined", func(t *testing.T) {
		// Compile-time check - if DBTX doesn't have these methods,
		// the code won't compile
		var _ DBTX = (*mockDBTX)(nil)
	})
}

// mockDBTX is a mock implementation of DBTX for interface verification.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

// TestDatabaseConfig_DSN verifies config DSN generation works correctly.
func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN with all parameters", func(t *testing.T) {
		cfg := &config.DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "papersearch",
			Password:       "secret",
			Name:           "paper_search_service",
			SSLMode:        "disable",
			ConnectTimeout: 10 * time.Second,
		}

		dsn := cfg.DSN()

		assert.Contains(t, dsn, "postgres://")
		assert.Contains(t, dsn, "papersearch")
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "paper_search_service")
		assert.Contains(t, dsn, "sslmode=disable")
		assert.Contains(t, dsn, "connect_timeout=10")
	})

	t.Run("escapes special characters in user and password", func(t *testing.T) {
		cfg := &config.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user@domain",
			Password: "pass/word",
			Name:     "testdb",
			SSLMode:  "require",
		}

		dsn := cfg.DSN()

		// URL encoding should escape @ and /
		assert.Contains(t, dsn, "user%40domain")
		assert.Contains(t, dsn, "pass%2Fword")
	})
}

// TestHealthCheckTimeout verifies the health check timeout constant is properly defined.
func TestHealthCheckTimeout(t *testing.T) {
	t.Run("health check timeout is 5 seconds", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, HealthCheckTimeout)
	})
}

// TestHealthStatus_Fields verifies HealthStatus struct construction and JSON serialization.
func TestHealthStatus_Fields(t *testing.T) {
	t.Run("all fields populated", func(t *testing.T) {
		hs := HealthStatus{
			Status:            "unhealthy",
			Error:             "connection refused",
			TotalConns:        10,
			AcquiredConns:     3,
			IdleConns:         7,
			ConstructingConns: 0,
			MaxConns:          25,
		}

		assert.Equal(t, "unhealthy", hs.Status)
		assert.Equal(t, "connection refused", hs.Error)
		assert.Equal(t, int32(10), hs.TotalConns)
		assert.Equal(t, int32(3), hs.AcquiredConns)
		assert.Equal(t, int32(7), hs.IdleConns)
		assert.Equal(t, int32(0), hs.ConstructingConns)
		assert.Equal(t, int32(25), hs.MaxConns)
	})

	t.Run("error field omitted from JSON when empty", func(t *testing.T) {
		hs := HealthStatus{Status: "healthy"}

		data, err := json.Marshal(hs)
		require.NoError(t, err)

		assert.Contains(t, string(data), `"status":"healthy"`)
		assert.NotContains(t, string(data), "error")
	})
}

// TestNew_InvalidConfig verifies that New fails on an unparseable DSN.
func TestNew_InvalidConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "user",
		Name:    "db",
		SSLMode: "not-a-real-mode",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, db)
}

// TestDB_Close_NilPool verifies Close is a no-op without a pool.
func TestDB_Close_NilPool(t *testing.T) {
	db := &DB{logger: zerolog.Nop()}
	assert.NotPanics(t, func() {
		db.Close()
	})
}

// setupTestDB connects to a local test database, returning nil when unavailable.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		return nil
	}

	cfg := &config.DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		User:           "papersearch",
		Password:       "papersearch",
		Name:           "paper_search_service_test",
		SSLMode:        "disable",
		MaxConns:       5,
		MinConns:       1,
		ConnectTimeout: 2 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	if err != nil {
		return nil
	}
	return db
}

// TestDB_DBTX exercises the DBTX methods against a real database when available.
func TestDB_DBTX(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		t.Skip("Skipping: cannot connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	t.Run("QueryRow", func(t *testing.T) {
		var one int
		err := db.QueryRow(ctx, "SELECT 1").Scan(&one)
		require.NoError(t, err)
		assert.Equal(t, 1, one)
	})

	t.Run("Query", func(t *testing.T) {
		rows, err := db.Query(ctx, "SELECT generate_series(1, 3)")
		require.NoError(t, err)
		defer rows.Close()

		var count int
		for rows.Next() {
			count++
		}
		assert.Equal(t, 3, count)
	})

	t.Run("Exec", func(t *testing.T) {
		tag, err := db.Exec(ctx, "SELECT 1")
		require.NoError(t, err)
		assert.NotEmpty(t, tag.String())
	})

	t.Run("Health", func(t *testing.T) {
		health := db.Health(ctx)
		assert.Equal(t, "healthy", health.Status)
		assert.Empty(t, health.Error)
	})
}

// TestDB_WithTransaction verifies commit and rollback behavior.
func TestDB_WithTransaction(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		t.Skip("Skipping: cannot connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			var one int
			return tx.QueryRow(ctx, "SELECT 1").Scan(&one)
		})
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		sentinel := assert.AnError
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
	})
}
