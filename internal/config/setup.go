package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// RunSetup runs the interactive setup wizard on r/w and returns the edited
// config. existing provides the default for each prompt.
func RunSetup(r io.Reader, w io.Writer, existing Config) (Config, error) {
	br := bufio.NewReader(r)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(w, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(w, "%s: ", prompt)
		}
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		return strings.ToLower(ans) == "y" || strings.ToLower(ans) == "yes", nil
	}

	askDuration := func(prompt string, defaultVal time.Duration) (time.Duration, error) {
		for {
			ans, err := ask(prompt, defaultVal.String())
			if err != nil {
				return 0, err
			}
			d, err := time.ParseDuration(ans)
			if err == nil && d > 0 {
				return d, nil
			}
			fmt.Fprintf(w, "  %q is not a positive duration (e.g. 15s)\n", ans)
		}
	}

	cfg := existing

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(w, "  │      neopresence — setup        │")
	fmt.Fprintln(w, "  └─────────────────────────────────┘")
	fmt.Fprintln(w)

	var err error

	cfg.Discord.ClientID, err = ask("  Discord application id (empty disables Discord)", cfg.Discord.ClientID)
	if err != nil {
		return cfg, err
	}
	if cfg.Discord.ClientID != "" {
		cfg.Discord.LargeImage, err = ask("  Large image asset", cfg.Discord.LargeImage)
		if err != nil {
			return cfg, err
		}
		cfg.Discord.LargeText, err = ask("  Large image tooltip", cfg.Discord.LargeText)
		if err != nil {
			return cfg, err
		}
	}

	cfg.Interval, err = askDuration("  Update interval", cfg.Interval)
	if err != nil {
		return cfg, err
	}
	cfg.RetryDelay, err = askDuration("  Reconnect delay", cfg.RetryDelay)
	if err != nil {
		return cfg, err
	}

	serveFeed, err := askBool("  Serve the local live feed", cfg.FeedEnabled())
	if err != nil {
		return cfg, err
	}
	if serveFeed {
		addr := cfg.Feed.Addr
		if addr == FeedOff || addr == "" {
			addr = Defaults().Feed.Addr
		}
		cfg.Feed.Addr, err = ask("  Feed address", addr)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg.Feed.Addr = FeedOff
	}

	pct, err := ask("  Diff effort cap in percent (100 = exact)", strconv.Itoa(cfg.Diff.MaxEditPercent))
	if err != nil {
		return cfg, err
	}
	if n, convErr := strconv.Atoi(pct); convErr == nil && n >= 1 && n <= 100 {
		cfg.Diff.MaxEditPercent = n
	}

	cfg.Log.ToEditor, err = askBool("  Forward logs to the editor", cfg.Log.ToEditor)
	if err != nil {
		return cfg, err
	}

	fmt.Fprintln(w)
	return cfg, nil
}
