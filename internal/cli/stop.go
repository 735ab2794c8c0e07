package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running Copydesk bot",
	Long: `Stop a running Copydesk bot gracefully.
Sends SIGTERM to the bot and waits for it to shut down.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "timeout in seconds to wait for the bot to stop")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pidFile := getPIDFilePath()

	pid, err := stopDaemon(pidFile)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(time.Duration(stopTimeout) * time.Second)
	for time.Now().Before(deadline) {
		if !isRunning(pidFile) {
			cmd.Println("Daemon stopped successfully")
			os.Remove(pidFile)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	cmd.Println("Timeout reached, sending SIGKILL...")

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	os.Remove(pidFile)
	cmd.Println("Daemon killed")
	return nil
}

// stopDaemon sends SIGTERM to the process recorded in pidFile
func stopDaemon(pidFile string) (int, error) {
	if !isRunning(pidFile) {
		return 0, fmt.Errorf("daemon is not running")
	}

	pid, err := readPID(pidFile)
	if err != nil {
		return 0, err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	return pid, nil
}
