package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigratedPool_PoolsDoNotShareRows(t *testing.T) {
	ctx := context.Background()
	a := OpenMigratedPool(t)
	b := OpenMigratedPool(t)

	_, err := a.Exec(ctx, `INSERT INTO members (external_id, name, email, created_at, updated_at) VALUES (gen_random_uuid(), 'Anna', 'anna@example.com', now(), now())`)
	require.NoError(t, err)

	var inA, inB int
	require.NoError(t, a.QueryRow(ctx, `SELECT count(*) FROM members`).Scan(&inA))
	require.NoError(t, b.QueryRow(ctx, `SELECT count(*) FROM members`).Scan(&inB))
	assert.Equal(t, 1, inA)
	assert.Equal(t, 0, inB)

	var schemaA, schemaB string
	require.NoError(t, a.QueryRow(ctx, `SELECT current_schema()`).Scan(&schemaA))
	require.NoError(t, b.QueryRow(ctx, `SELECT current_schema()`).Scan(&schemaB))
	assert.NotEqual(t, schemaA, schemaB)
	assert.Regexp(t, `^itest_[0-9a-f]{32}$`, schemaA)

	var sim float64
	require.NoError(t, a.QueryRow(ctx, `SELECT similarity('anna', 'anne')::float8`).Scan(&sim))
	assert.Greater(t, sim, 0.0)
}
