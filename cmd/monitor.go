package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/VanillaViking/neopresence/internal/presence"
	"github.com/VanillaViking/neopresence/internal/presence/feed"
	"github.com/VanillaViking/neopresence/internal/tui"
)

var (
	monitorAddr string
	plainOutput bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow the live presence feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := feedAddr(monitorAddr)
		if err != nil {
			return err
		}
		if plainOutput {
			return printFeed(cmd.Context(), addr, cmd.OutOrStdout())
		}
		return tui.Run(cmd.Context(), addr, func(ctx context.Context) (tui.Source, error) {
			return feed.Dial(ctx, addr)
		})
	},
}

// printFeed writes one line per update until ctx is done or the feed ends.
func printFeed(ctx context.Context, addr string, w io.Writer) error {
	c, err := feed.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	r := &presence.TextRenderer{}
	for {
		a, err := c.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if a == nil {
			fmt.Fprintln(w, "(cleared)")
			continue
		}
		out, err := r.Render(a)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	}
}

func init() {
	monitorCmd.Flags().StringVar(&monitorAddr, "addr", "", "feed address (default from config)")
	monitorCmd.Flags().BoolVar(&plainOutput, "plain", false, "print updates as text instead of the interactive view")
	rootCmd.AddCommand(monitorCmd)
}
