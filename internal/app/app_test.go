package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-line-bot/internal/app"
)

func TestCreateAndInitSqliteDb(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	db, err := app.CreateSqliteDb(ctx, "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, app.InitSqliteDb(db, "sqlite"))
	// migrations are idempotent
	require.NoError(t, app.InitSqliteDb(db, "sqlite"))

	var name string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_subscriptions_date'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_subscriptions_date", name)
}

func TestCreateSqliteDb_EmptyName(t *testing.T) {
	_, err := app.CreateSqliteDb(context.Background(), "sqlite", "")
	assert.Error(t, err)
}
