package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VanillaViking/neopresence/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure neopresence (re-run anytime to edit settings)",
	Args:  cobra.NoArgs,
	// Setup must work even when the existing config does not validate.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		// Load the existing global config as defaults if present.
		global, err := config.LoadGlobal()
		if err != nil {
			fmt.Fprintf(out, "  ⚠ Ignoring unreadable config: %v\n", err)
			global = nil
		}
		existing := config.Merge(global, nil)

		updated, err := config.RunSetup(cmd.InOrStdin(), out, existing)
		if err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		path, err := config.SaveGlobal(updated)
		if err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(out, "  ✓ Config saved to %s\n", path)
		fmt.Fprintln(out, "  Point your editor's language client at 'neopresence start'.")
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
