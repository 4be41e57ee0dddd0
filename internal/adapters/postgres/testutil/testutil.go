// Package testutil opens a migrated Postgres pool for contract and integration tests.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/museum-members/member-registry-api/internal/adapters/postgres"
)

// extensionLock serializes CREATE EXTENSION across concurrently running test binaries.
const extensionLock = 727001

// OpenMigratedPool connects to TEST_DATABASE_URL and returns a pool bound to a fresh,
// migrated schema that is dropped when the test ends. Packages run in parallel by
// go test never see each other's rows.
// The test is skipped when TEST_DATABASE_URL is unset.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres-backed test")
	}

	ctx := context.Background()
	schema := "itest_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = admin.Close(ctx) }()

	// pg_trgm must live in public; created inside the test schema it would vanish with it.
	if _, err := admin.Exec(ctx, `SELECT pg_advisory_lock($1)`, extensionLock); err != nil {
		t.Fatalf("advisory lock: %v", err)
	}
	_, extErr := admin.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm WITH SCHEMA public`)
	if _, err := admin.Exec(ctx, `SELECT pg_advisory_unlock($1)`, extensionLock); err != nil {
		t.Fatalf("advisory unlock: %v", err)
	}
	if extErr != nil {
		t.Fatalf("create pg_trgm: %v", extErr)
	}

	quoted := pgx.Identifier{schema}.Sanitize()
	if _, err := admin.Exec(ctx, `CREATE SCHEMA `+quoted); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		conn, err := pgx.Connect(context.Background(), dsn)
		if err != nil {
			t.Logf("drop schema %s: %v", schema, err)
			return
		}
		defer func() { _ = conn.Close(context.Background()) }()
		if _, err := conn.Exec(context.Background(), `DROP SCHEMA `+quoted+` CASCADE`); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
	})

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{
		MaxConns:   4,
		SearchPath: schema + ",public",
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	// Registered after the drop, so it runs first and no connection holds the schema.
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return pool
}
