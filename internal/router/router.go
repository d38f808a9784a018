// Package router runs the event loop that owns the editing session. It is the
// only goroutine that touches session.State.
package router

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/pslog"

	"github.com/VanillaViking/neopresence/internal/lsp"
	"github.com/VanillaViking/neopresence/internal/presence"
	"github.com/VanillaViking/neopresence/internal/session"
)

// drainTimeout bounds the final delivery when the router stops.
const drainTimeout = 2 * time.Second

// Presence is the outbound side as the router sees it; *presence.Driver
// implements it.
type Presence interface {
	Submit(a presence.Activity)
	Reconnect()
	Stop(ctx context.Context) error
}

// Phase is the router lifecycle state.
type Phase int

const (
	Running Phase = iota
	Draining
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Config holds the router timing.
type Config struct {
	// Interval between presence updates.
	Interval time.Duration
	// RetryDelay is the fixed wait after a sink failure before reconnecting.
	RetryDelay time.Duration
	// SessionID is copied into every activity.
	SessionID string
	// Ticks replaces the interval ticker when set.
	Ticks <-chan time.Time
	// Now defaults to time.Now.
	Now func() time.Time
}

// Router merges editor events, ticks and sink health into session updates
// and presence deliveries.
type Router struct {
	cfg      Config
	state    *session.State
	events   <-chan lsp.Event
	health   <-chan presence.HealthEvent
	presence Presence
	phase    Phase
}

// New returns a router that takes ownership of state.
func New(cfg Config, state *session.State, events <-chan lsp.Event, health <-chan presence.HealthEvent, p Presence) *Router {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Router{
		cfg:      cfg,
		state:    state,
		events:   events,
		health:   health,
		presence: p,
	}
}

// Run processes one message at a time until the editor shuts down, the editor
// stream ends or ctx is done. A stream that failed is returned as an error;
// every other exit returns nil.
func (r *Router) Run(ctx context.Context) error {
	log := pslog.Ctx(ctx).With("session", r.cfg.SessionID)

	ticks := r.cfg.Ticks
	if ticks == nil {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var (
		retryTimer *time.Timer
		retry      <-chan time.Time
	)
	defer func() {
		if retryTimer != nil {
			retryTimer.Stop()
		}
	}()

	events, health := r.events, r.health
	r.phase = Running
	log.Debug("router running", "interval", r.cfg.Interval, "retry_delay", r.cfg.RetryDelay)

	for {
		select {
		case <-ctx.Done():
			log.Debug("router cancelled")
			r.drain(ctx)
			return nil

		case ev, ok := <-events:
			if !ok {
				r.drain(ctx)
				return nil
			}
			switch ev := ev.(type) {
			case lsp.Open:
				r.state.RecordOpen(ev.Filename)
				log.Trace("file opened", "file", ev.Filename)
			case lsp.Change:
				r.state.RecordChange(ev.Filename, ev.Text)
				log.Trace("file changed", "file", ev.Filename, "bytes", len(ev.Text))
			case lsp.Shutdown:
				log.Info("editor requested shutdown")
				r.drain(ctx)
				return nil
			case lsp.Closed:
				r.drain(ctx)
				if ev.Err != nil {
					return fmt.Errorf("editor stream: %w", ev.Err)
				}
				log.Info("editor stream closed")
				return nil
			}

		case <-ticks:
			snap := r.state.Snapshot()
			r.presence.Submit(presence.FromSnapshot(snap, r.cfg.SessionID, r.cfg.Now()))
			log.Trace("snapshot", "additions", snap.Additions, "deletions", snap.Deletions, "files", snap.FilesTouched)

		case hev, ok := <-health:
			if !ok {
				health = nil
				continue
			}
			if retry != nil {
				continue
			}
			log.With("err", hev.Err).Warn("presence unavailable, retrying", "delay", r.cfg.RetryDelay)
			retryTimer = time.NewTimer(r.cfg.RetryDelay)
			retry = retryTimer.C

		case <-retry:
			retry, retryTimer = nil, nil
			log.Debug("reconnecting presence")
			r.presence.Reconnect()
		}
	}
}

// Phase reports where the router is in its lifecycle. It is only meaningful
// once Run has returned.
func (r *Router) Phase() Phase { return r.phase }

func (r *Router) drain(ctx context.Context) {
	r.phase = Draining
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := r.presence.Stop(stopCtx); err != nil {
		pslog.Ctx(ctx).With("err", err).Warn("presence did not stop cleanly")
	}
	r.phase = Stopped
}
