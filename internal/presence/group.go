package presence

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Group drives several sinks, each with its own Driver, so a sink that is
// down does not hold back the others. It offers the same calls as Driver.
type Group struct {
	drivers []*Driver
	health  chan HealthEvent
}

// NewGroup returns a group with one driver per sink.
func NewGroup(sinks ...Sink) *Group {
	g := &Group{health: make(chan HealthEvent, 1)}
	for _, s := range sinks {
		g.drivers = append(g.drivers, NewDriver(s))
	}
	return g
}

// Health merges the failures of every driver. Like Driver.Health it buffers
// at most one unread failure.
func (g *Group) Health() <-chan HealthEvent { return g.health }

// Submit hands a to every driver.
func (g *Group) Submit(a Activity) {
	for _, d := range g.drivers {
		d.Submit(a)
	}
}

// Reconnect asks every disconnected sink to reconnect.
func (g *Group) Reconnect() {
	for _, d := range g.drivers {
		d.Reconnect()
	}
}

// Stop stops every driver in turn.
func (g *Group) Stop(ctx context.Context) error {
	var errs []error
	for _, d := range g.drivers {
		errs = append(errs, d.Stop(ctx))
	}
	return errors.Join(errs...)
}

// Run runs every driver until they are stopped or ctx is done.
func (g *Group) Run(ctx context.Context) error {
	var eg errgroup.Group
	for _, d := range g.drivers {
		eg.Go(func() error { return d.Run(ctx) })
		eg.Go(func() error {
			g.forward(ctx, d)
			return nil
		})
	}
	return eg.Wait()
}

func (g *Group) forward(ctx context.Context, d *Driver) {
	for {
		select {
		case ev := <-d.health:
			select {
			case g.health <- ev:
			default:
			}
		case <-d.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
