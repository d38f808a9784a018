package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// ErrStopped is returned by Stop when the driver had already exited.
var ErrStopped = errors.New("presence driver stopped")

// Driver is the task that owns a Sink. The router hands it activities with
// Submit and asks it to reconnect with Reconnect; the driver reports every
// failure on Health. Neither call blocks.
//
// An activity that could not be delivered is kept and sent again after the
// next successful Connect, unless a newer one replaces it first.
type Driver struct {
	sink Sink
	now  func() time.Time

	mailbox   chan Activity
	reconnect chan struct{}
	health    chan HealthEvent
	stop      chan context.Context
	done      chan struct{}
	stopOnce  sync.Once
}

// NewDriver returns a driver for sink. Run must be called to start it.
func NewDriver(sink Sink) *Driver {
	return &Driver{
		sink:      sink,
		now:       time.Now,
		mailbox:   make(chan Activity, 1),
		reconnect: make(chan struct{}, 1),
		health:    make(chan HealthEvent, 1),
		stop:      make(chan context.Context),
		done:      make(chan struct{}),
	}
}

// Health delivers sink failures. At most one unread failure is buffered;
// later ones are dropped until it is read.
func (d *Driver) Health() <-chan HealthEvent { return d.health }

// Submit replaces any activity that has not been picked up yet.
func (d *Driver) Submit(a Activity) {
	for {
		select {
		case d.mailbox <- a:
			return
		default:
		}
		select {
		case <-d.mailbox:
		default:
		}
	}
}

// Reconnect asks the driver to reconnect the sink after a failure. It is a
// no-op while the sink is connected, and requests made while one is already
// queued are merged.
func (d *Driver) Reconnect() {
	select {
	case d.reconnect <- struct{}{}:
	default:
	}
}

// Stop delivers the activity still in flight, clears the presence and closes
// the sink, then waits for Run to return.
func (d *Driver) Stop(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		select {
		case d.stop <- ctx:
		case <-d.done:
			err = ErrStopped
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	})
	if err != nil {
		return err
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run connects the sink and serves requests until Stop is called or ctx is
// done. Sink failures never end Run.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.done)
	log := pslog.Ctx(ctx)

	var (
		pending   *Activity
		connected bool
	)

	deliver := func(ctx context.Context) {
		if pending == nil || !connected {
			return
		}
		if err := d.sink.Update(ctx, *pending); err != nil {
			connected = false
			d.report(ctx, err)
			return
		}
		log.Trace("presence delivered", "state", pending.State)
		pending = nil
	}

	connect := func(ctx context.Context) {
		if err := d.sink.Connect(ctx); err != nil {
			connected = false
			d.report(ctx, err)
			return
		}
		connected = true
		log.Debug("presence connected")
		deliver(ctx)
	}

	connect(ctx)
	for {
		select {
		case <-ctx.Done():
			if err := d.sink.Close(); err != nil {
				log.With("err", err).Warn("closing presence sink")
			}
			return nil

		case stopCtx := <-d.stop:
			// pick up an activity submitted right before Stop
			select {
			case a := <-d.mailbox:
				pending = &a
			default:
			}
			deliver(stopCtx)
			if connected {
				if err := d.sink.Clear(stopCtx); err != nil {
					log.With("err", err).Warn("clearing presence")
				}
			}
			if err := d.sink.Close(); err != nil {
				log.With("err", err).Warn("closing presence sink")
			}
			return nil

		case <-d.reconnect:
			if !connected {
				connect(ctx)
			}

		case a := <-d.mailbox:
			pending = &a
			deliver(ctx)
		}
	}
}

func (d *Driver) report(ctx context.Context, err error) {
	pslog.Ctx(ctx).With("err", err).Warn("presence sink failed")
	select {
	case d.health <- HealthEvent{Err: err, At: d.now()}:
	default:
	}
}
