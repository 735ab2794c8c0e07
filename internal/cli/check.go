package cli

import (
	"fmt"

	"github.com/harun/copydesk/internal/config"
	"github.com/harun/copydesk/internal/telegram"
	"github.com/spf13/cobra"
)

var (
	showConfig  bool
	checkOnline bool
)

// validateToken is replaced in tests so --online never reaches Telegram.
var validateToken = telegram.ValidateToken

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Long: `Load the configuration the same way start does and report problems.
Nothing is sent to Telegram or the completion API unless --online is given,
in which case the bot token is authenticated against Telegram.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&showConfig, "show", false, "print the resolved configuration with secrets masked")
	checkCmd.Flags().BoolVar(&checkOnline, "online", false, "authenticate the bot token with Telegram")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidate(cfgFile)
	if err != nil {
		if config.IsConfigurationError(err) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	if showConfig {
		cmd.Println(cfg.String())
	}

	warnings := config.NewValidator().ValidateConfig(cfg)
	for _, warning := range warnings {
		cmd.Printf("warning: %v\n", warning)
	}

	if checkOnline {
		if err := validateToken(cfg.Telegram.BotToken); err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		cmd.Println("Telegram token OK")
	}

	cmd.Printf("Configuration OK (%d warnings)\n", len(warnings))
	return nil
}
