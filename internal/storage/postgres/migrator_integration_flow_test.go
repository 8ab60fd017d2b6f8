package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_PostgresStepByStep(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, store.MigrateDown(ctx, 100), "reset schema")

	steps := []struct {
		name    string
		apply   func() error
		version int64
		tables  []string
	}{
		{"empty", func() error { return nil }, 0, nil},
		{"up batches", func() error { return store.MigrateUp(ctx, 1) }, 1, []string{"batches", "allocations"}},
		{"up journal", func() error { return store.MigrateUp(ctx, 1) }, 2, []string{"batches", "allocations", "allocation_journal"}},
		{"up rest", func() error { return store.MigrateUp(ctx, 0) }, 3, schemaTables},
		{"up again", func() error { return store.MigrateUp(ctx, 0) }, 3, schemaTables},
		{"down default step", func() error { return store.MigrateDown(ctx, 0) }, 2, []string{"batches", "allocations", "allocation_journal"}},
		{"down all", func() error { return store.MigrateDown(ctx, 100) }, 0, nil},
		{"down on empty", func() error { return store.MigrateDown(ctx, 1) }, 0, nil},
	}

	for _, step := range steps {
		require.NoError(t, step.apply(), step.name)

		version, applied, err := store.MigrationStatus(ctx)
		require.NoError(t, err, step.name)
		assert.Equal(t, step.version, version, step.name)
		assert.EqualValues(t, step.version, applied, step.name)
		assert.Equal(t, step.tables, existingTables(t, store), step.name)
	}

	require.NoError(t, store.EnsureSchema(ctx), "leave schema current for other tests")
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var nilStore *Store
	assert.ErrorIs(t, nilStore.MigrateUp(ctx, 0), errStoreNotInitialized)
	assert.ErrorIs(t, nilStore.MigrateDown(ctx, 1), errStoreNotInitialized)
	_, _, err := nilStore.MigrationStatus(ctx)
	assert.ErrorIs(t, err, errStoreNotInitialized)

	store := openRawPostgresStoreForIntegrationTest(t)
	assert.ErrorContains(t, store.migrate(ctx, migrationDirection("sideways"), 0), "unsupported migration direction")
}
