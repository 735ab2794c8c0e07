package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/harun/copydesk/internal/config"
	"github.com/harun/copydesk/internal/daemon"
	"github.com/harun/copydesk/internal/logger"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Copydesk bot",
	Long: `Start the Copydesk bot in the foreground.
The bot polls Telegram until it receives SIGINT or SIGTERM. The Telegram bot
token and OpenRouter API key are read from TELEGRAM_BOT_TOKEN and
OPENROUTER_API_KEY (or a .env file in the working directory).`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	pidFile := getPIDFilePath()
	if isRunning(pidFile) {
		return fmt.Errorf("daemon is already running (PID file: %s)", pidFile)
	}

	// Secrets are checked before anything touches the network
	cfg, err := config.LoadAndValidate(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	for _, warning := range config.NewValidator().ValidateConfig(cfg) {
		log.Warn().Err(warning).Msg("Configuration warning")
	}

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := writePIDFile(pidFile); err != nil {
		log.Warn().Err(err).Str("pid_file", pidFile).Msg("Failed to write PID file")
	}
	defer os.Remove(pidFile)

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	d.Wait()
	return nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
}

func getPIDFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "copydesk.pid")
	}
	return filepath.Join(home, ".copydesk", "copydesk.pid")
}

func writePIDFile(pidFile string) error {
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func readPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file: %s", pidFile)
	}
	return pid, nil
}

func isRunning(pidFile string) bool {
	pid, err := readPID(pidFile)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so check with signal 0
	return process.Signal(syscall.Signal(0)) == nil
}
