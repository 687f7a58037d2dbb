package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitter-badger/astroid/internal/migrate"
	"github.com/gitter-badger/astroid/internal/testutil"
)

func TestUpIsIdempotent(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()

	applied, err := migrate.Up(ctx, pool, nil)
	require.NoError(t, err)
	assert.Empty(t, applied, "NewTestDB already migrated")

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 1, count)
}
