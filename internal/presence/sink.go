package presence

import (
	"context"

	"pkt.systems/pslog"
)

// Sink is an outbound presence channel. Implementations are used from a
// single goroutine, the Driver's.
type Sink interface {
	// Connect (re)establishes the channel. It is called again after any
	// failure and must be safe to call on a connected sink.
	Connect(ctx context.Context) error
	// Update publishes a.
	Update(ctx context.Context, a Activity) error
	// Clear removes the published presence.
	Clear(ctx context.Context) error
	Close() error
}

// LogSink writes every update to the context logger. It never fails.
type LogSink struct{}

func (LogSink) Connect(ctx context.Context) error { return nil }

func (LogSink) Update(ctx context.Context, a Activity) error {
	pslog.Ctx(ctx).Info("presence", "details", a.Details, "state", a.State, "repo", a.RepoURL)
	return nil
}

func (LogSink) Clear(ctx context.Context) error {
	pslog.Ctx(ctx).Info("presence cleared")
	return nil
}

func (LogSink) Close() error { return nil }
