package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/VanillaViking/neopresence/internal/diff"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Count the lines added and deleted between two files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		old, err := readFile(args[0])
		if err != nil {
			return err
		}
		cur, err := readFile(args[1])
		if err != nil {
			return err
		}

		deletions, additions := diff.CountPercent(diff.Lines(old), diff.Lines(cur), GetConfig().Diff.MaxEditPercent)

		adds, dels := strconv.Itoa(additions)+" additions", strconv.Itoa(deletions)+" deletions"
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(f.Fd()) {
			adds, dels = addedStyle.Render(adds), deletedStyle.Render(dels)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s, %s\n", adds, dels)
		return nil
	},
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", err
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
