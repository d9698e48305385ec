package configpkg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	content := "DB_DRIVER=postgres\nLEDGER_TIMEOUT=5s\nNOTIFIER=redis\n"
	err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600)
	require.NoError(t, err)

	t.Setenv("COMPENSATION_ATTEMPTS", "7")

	config, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, DriverPostgres, config.DBDriver)
	require.Equal(t, 5*time.Second, config.LedgerTimeout)
	require.Equal(t, "redis", config.Notifier)
	require.Equal(t, 7, config.CompensationAttempts)
	require.Equal(t, 3*time.Second, config.NotifyTimeout)
	require.Equal(t, "@every 1m", config.ReconcileSchedule)
}

func TestLoadWithoutFile(t *testing.T) {
	config, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, DriverMemory, config.DBDriver)
	require.Equal(t, "paseto", config.TokenType)
	require.Equal(t, 40, config.RateLimitBurst)
}
