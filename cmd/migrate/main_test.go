package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upSteps   []int
	downSteps []int
	version   int64
	applied   int
	upErr     error
	statusErr error
	closed    bool
}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	f.upSteps = append(f.upSteps, steps)
	return f.upErr
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	return nil
}

func (f *fakeMigrator) MigrationStatus(context.Context) (int64, int, error) {
	return f.version, f.applied, f.statusErr
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func withFakeMigrator(t *testing.T, fake *fakeMigrator, openErr error) {
	t.Helper()

	prev := openMigrator
	openMigrator = func(context.Context, string) (migrator, error) {
		if openErr != nil {
			return nil, openErr
		}
		return fake, nil
	}
	t.Cleanup(func() { openMigrator = prev })
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-direction=DOWN", "-steps=2"}, env(map[string]string{dsnEnv: " postgres://x "}))
	require.NoError(t, err)
	assert.Equal(t, "down", opts.direction)
	assert.Equal(t, 2, opts.steps)
	assert.Equal(t, "postgres://x", opts.dsn)

	opts, err = parseOptions([]string{"-dsn=postgres://flag"}, env(map[string]string{dsnEnv: "postgres://env"}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", opts.dsn, "flag wins over env")
	assert.Equal(t, "up", opts.direction)
}

func TestParseOptions_Errors(t *testing.T) {
	tests := map[string][]string{
		"missing dsn":       {},
		"bad direction":     {"-dsn=postgres://x", "-direction=sideways"},
		"negative steps":    {"-dsn=postgres://x", "-steps=-1"},
		"unknown flag":      {"-dsn=postgres://x", "-force"},
		"steps not integer": {"-dsn=postgres://x", "-steps=all"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseOptions(args, env(nil))
			assert.Error(t, err)
		})
	}
}

func TestRun_Up(t *testing.T) {
	fake := &fakeMigrator{version: 3, applied: 3}
	withFakeMigrator(t, fake, nil)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{direction: "up", dsn: "x"}, &out))

	assert.Equal(t, []int{0}, fake.upSteps)
	assert.Equal(t, "migrate up ok: version=3 applied=3\n", out.String())
	assert.True(t, fake.closed)
}

func TestRun_DownDefaultsToOneStep(t *testing.T) {
	fake := &fakeMigrator{version: 2, applied: 2}
	withFakeMigrator(t, fake, nil)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{direction: "down", dsn: "x"}, &out))

	assert.Equal(t, []int{1}, fake.downSteps)
	assert.Contains(t, out.String(), "migrate down ok")
}

func TestRun_Status(t *testing.T) {
	fake := &fakeMigrator{version: 1, applied: 1}
	withFakeMigrator(t, fake, nil)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{direction: "status", dsn: "x"}, &out))

	assert.Empty(t, fake.upSteps)
	assert.Empty(t, fake.downSteps)
	assert.Equal(t, "migration status: version=1 applied=1\n", out.String())
}

func TestRun_Errors(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		withFakeMigrator(t, nil, errors.New("dial tcp: refused"))
		err := run(context.Background(), options{direction: "up", dsn: "x"}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open postgres store")
	})

	t.Run("migrate", func(t *testing.T) {
		fake := &fakeMigrator{upErr: errors.New("syntax error")}
		withFakeMigrator(t, fake, nil)
		err := run(context.Background(), options{direction: "up", dsn: "x"}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migrate up failed")
		assert.True(t, fake.closed)
	})

	t.Run("status", func(t *testing.T) {
		fake := &fakeMigrator{statusErr: errors.New("no table")}
		withFakeMigrator(t, fake, nil)
		err := run(context.Background(), options{direction: "status", dsn: "x"}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "migration status failed")
	})
}

func TestRun_PostgresRoundTrip(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("STOCKS_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("STOCKS_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, run(ctx, options{direction: "up", dsn: dsn}, &out))
	require.NoError(t, run(ctx, options{direction: "status", dsn: dsn}, &out))
	assert.Contains(t, out.String(), "migration status: version=")
}
