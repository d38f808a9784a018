package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VanillaViking/neopresence/internal/presence"
	"github.com/VanillaViking/neopresence/internal/presence/feed"
)

var (
	statusAddr    string
	statusFormat  string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the presence currently published by a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := feedAddr(statusAddr)
		if err != nil {
			return err
		}
		renderer, err := presence.RendererFor(statusFormat)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		defer cancel()

		c, err := feed.Dial(ctx, addr)
		if err != nil {
			return fmt.Errorf("no daemon reachable: %w", err)
		}
		defer c.Close()

		a, err := c.Next(ctx)
		if errors.Is(err, context.DeadlineExceeded) || (err == nil && a == nil) {
			fmt.Fprintln(cmd.OutOrStdout(), "No active presence.")
			return nil
		}
		if err != nil {
			return err
		}

		out, err := renderer.Render(a)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// feedAddr returns the flag value or the configured feed address.
func feedAddr(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	c := GetConfig()
	if !c.FeedEnabled() {
		return "", errors.New("the live feed is disabled (feed.addr: off); pass --addr")
	}
	return c.Feed.Addr, nil
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "feed address (default from config)")
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "text", "output format: text, json or markdown")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 3*time.Second, "how long to wait for the daemon")
	rootCmd.AddCommand(statusCmd)
}
