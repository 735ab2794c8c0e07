package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/harun/copydesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		output, err := execute(t, "start", "--help")
		require.NoError(t, err)
		assert.Contains(t, output, "Start the Copydesk bot")
		assert.Contains(t, output, "TELEGRAM_BOT_TOKEN")
	})

	t.Run("missing secrets fail before connecting", func(t *testing.T) {
		home := isolate(t)
		configPath := filepath.Join(home, "missing.json")

		_, err := execute(t, "start", "--config", configPath)
		require.Error(t, err)

		var cfgErr *config.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, config.EnvTelegramToken, cfgErr.Key)

		_, statErr := os.Stat(getPIDFilePath())
		assert.True(t, os.IsNotExist(statErr), "no PID file before the bot starts")
	})

	t.Run("missing api key", func(t *testing.T) {
		home := isolate(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "123456789:ABCdefGHIjklMNOpqrsTUVwxyz")

		_, err := execute(t, "start", "--config", filepath.Join(home, "missing.json"))
		require.Error(t, err)

		var cfgErr *config.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, config.EnvOpenRouterKey, cfgErr.Key)
	})

	t.Run("refuses to start twice", func(t *testing.T) {
		isolate(t)
		require.NoError(t, writePIDFile(getPIDFilePath()))

		_, err := execute(t, "start")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already running")
	})
}

func TestGetPIDFilePath(t *testing.T) {
	home := isolate(t)

	path := getPIDFilePath()
	assert.Equal(t, filepath.Join(home, ".copydesk", "copydesk.pid"), path)
}

func TestWriteAndReadPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "nested", "copydesk.pid")

	require.NoError(t, writePIDFile(pidFile))

	pid, err := readPID(pidFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsRunning(t *testing.T) {
	t.Run("no pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "nonexistent.pid")
		assert.False(t, isRunning(pidFile))
	})

	t.Run("invalid pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "invalid.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("invalid"), 0644))
		assert.False(t, isRunning(pidFile))
	})

	t.Run("current process", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "self.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644))
		assert.True(t, isRunning(pidFile))
	})
}
