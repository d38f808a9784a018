package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"

	"github.com/VanillaViking/neopresence/internal/collector"
	"github.com/VanillaViking/neopresence/internal/config"
	"github.com/VanillaViking/neopresence/internal/lsp"
	"github.com/VanillaViking/neopresence/internal/presence"
	"github.com/VanillaViking/neopresence/internal/presence/discord"
	"github.com/VanillaViking/neopresence/internal/presence/feed"
	"github.com/VanillaViking/neopresence/internal/router"
	"github.com/VanillaViking/neopresence/internal/session"
)

// editor events buffered between the reader and the router
const eventBuffer = 64

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the presence daemon on stdin/stdout (launched by the editor)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(cmd.Context(), GetConfig(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runStart(ctx context.Context, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(f.Fd()) {
		pslog.Ctx(ctx).Warn("stdin is a terminal; start expects to be launched by the editor")
	}

	conn := lsp.NewConn(stdin, stdout)
	if cfg.Log.ToEditor {
		w := io.MultiWriter(stderr, lsp.NewLogWriter(conn, lsp.MessageLog))
		ctx = pslog.ContextWithLogger(ctx, newLogger(w, cfg.Log.Level))
	}

	sessionID := uuid.NewString()
	log := pslog.Ctx(ctx).With("session", sessionID)
	ctx = pslog.ContextWithLogger(ctx, log)

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	ignore := collector.NewIgnoreList(workDir, cfg.Ignore.LanguageIDs, cfg.Ignore.Patterns,
		[]string{".gitignore", cfg.Ignore.File})
	facts, err := collector.Run(ctx, workDir, &collector.GitCollector{})
	if err != nil {
		log.With("err", err).Warn("resolving repository")
	}
	warnings := append(facts.Warnings, ignore.Reload(ctx)...)
	for _, w := range warnings {
		log.Debug("collector", "warning", w)
	}
	log.Info("session started", "workdir", workDir, "repo", facts.RemoteLabel, "branch", facts.Branch)

	var hub *feed.Hub
	if cfg.FeedEnabled() {
		hub = feed.NewHub(log)
	}
	sinks := presence.NewGroup(buildSinks(cfg, hub)...)

	state := session.NewState(time.Now(), facts.RemoteLabel, session.WithMaxEditPercent(cfg.Diff.MaxEditPercent))
	events := make(chan lsp.Event, eventBuffer)
	rt := router.New(router.Config{
		Interval:   cfg.Interval,
		RetryDelay: cfg.RetryDelay,
		SessionID:  sessionID,
	}, state, events, sinks.Health(), sinks)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopAll := context.WithCancel(gctx)
	defer stopAll()

	// The router stops the sinks while draining; their drivers must outlive a
	// cancelled parent context to deliver the final activity.
	driverCtx, stopDriver := context.WithCancel(context.WithoutCancel(gctx))
	defer stopDriver()
	g.Go(func() error {
		return sinks.Run(driverCtx)
	})

	g.Go(func() error {
		defer stopDriver()
		defer stopAll()
		return rt.Run(gctx)
	})

	if hub != nil {
		addr := cfg.Feed.Addr
		g.Go(func() error {
			if err := hub.ListenAndServe(runCtx, addr); err != nil {
				// another editor instance usually owns the port
				log.With("err", err).Warn("live feed disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := collector.WatchIgnoreFiles(runCtx, ignore); err != nil {
			log.With("err", err).Warn("ignore files will not be reloaded")
		}
		return nil
	})

	// Reads from stdin cannot be interrupted, so the reader is not waited for.
	server := lsp.NewServer(conn, lsp.ServerInfo{Name: "neopresence", Version: version}, ignore)
	go server.Run(runCtx, events)

	return g.Wait()
}

// buildSinks lists the configured presence sinks, falling back to the log.
func buildSinks(cfg config.Config, hub *feed.Hub) []presence.Sink {
	var sinks []presence.Sink
	if cfg.Discord.ClientID != "" {
		sinks = append(sinks, discord.New(discord.Options{
			ClientID:   cfg.Discord.ClientID,
			LargeImage: cfg.Discord.LargeImage,
			LargeText:  cfg.Discord.LargeText,
		}))
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if len(sinks) == 0 {
		return []presence.Sink{presence.LogSink{}}
	}
	return sinks
}

func init() {
	rootCmd.AddCommand(startCmd)
}
