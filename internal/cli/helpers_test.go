package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// isolate points HOME at a temp dir and blanks the secret variables so
// commands never pick up the developer's real configuration
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN",
		"OPENROUTER_API_KEY",
		"COPYDESK_TELEGRAM_BOT_TOKEN",
		"COPYDESK_COMPLETION_API_KEY",
	} {
		t.Setenv(key, "")
	}
	return home
}

// resetFlags puts every flag in the command tree back to its default.
// rootCmd is package-level, so values such as --help would otherwise leak
// from one execute call into the next.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()

	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("reset flag %s: %v", f.Name, err)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)

	for _, child := range cmd.Commands() {
		resetFlags(t, child)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := GetRootCmd()
	resetFlags(t, cmd)
	cmd.SetArgs(args)

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)

	err := cmd.Execute()
	return output.String(), err
}
