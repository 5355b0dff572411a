package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// ErrDisplayClosed is returned by [Loop.Run] when the display connection is
// lost.
var ErrDisplayClosed = errors.New("display connection closed")

// event is one item read from the display connection.
type event struct {
	ev  xgb.Event
	err xgb.Error
}

// Clock tracks the time between ticks.
type Clock struct {
	period time.Duration
	prev   time.Time
	now    func() time.Time
}

// NewClock returns a [Clock] for ticks every period.
func NewClock(period time.Duration) *Clock {
	return &Clock{period: period, now: time.Now}
}

// Tick records a tick and returns the time since the previous one. The
// result is zero on the first tick, and whenever the gap is negative or
// longer than two periods, so a stalled or adjusted clock never shows up as
// a long interval.
func (c *Clock) Tick() time.Duration {
	now := c.now()
	prev := c.prev
	c.prev = now

	if prev.IsZero() {
		return 0
	}

	elapsed := now.Sub(prev)
	if elapsed < 0 || elapsed > 2*c.period {
		return 0
	}

	return elapsed
}

// LoopOptions configures a [Loop].
type LoopOptions struct {
	Conn      Conn
	Tray      *Tray
	Surface   *Surface
	Producers []Producer

	// Ticks delivers nil for every tick of the redraw timer and a non-nil
	// error if the timer fails. See [Timer].
	Ticks <-chan error

	Clock  *Clock
	Logger *slog.Logger
}

// Loop is the panel's event loop. It redraws the widgets on every timer tick
// and dispatches display events to the tray and the surface.
//
// All state is owned by the goroutine running [Loop.Run].
type Loop struct {
	conn      Conn
	tray      *Tray
	surface   *Surface
	producers []Producer
	ticks     <-chan error
	clock     *Clock
	logger    *slog.Logger
	events    chan event
}

// NewLoop returns a new [Loop].
func NewLoop(opts LoopOptions) *Loop {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Clock == nil {
		opts.Clock = NewClock(500 * time.Millisecond)
	}

	return &Loop{
		conn:      opts.Conn,
		tray:      opts.Tray,
		surface:   opts.Surface,
		producers: opts.Producers,
		ticks:     opts.Ticks,
		clock:     opts.Clock,
		logger:    opts.Logger,
		events:    make(chan event, 64),
	}
}

// Run draws the first frame and processes ticks and display events until
// ctx is done or one of the sources fails.
func (l *Loop) Run(ctx context.Context) error {
	go l.pump(ctx)

	l.Redraw()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-l.ticks:
			if err != nil {
				return fmt.Errorf("loop: lost timer: %w", err)
			}
			l.Redraw()

		case e, ok := <-l.events:
			if !ok {
				return fmt.Errorf("loop: %w", ErrDisplayClosed)
			}
			if err := l.drain(e); err != nil {
				return err
			}
		}
	}
}

// pump forwards display events to the loop in arrival order. It stops once
// ctx is done and the next event has arrived.
func (l *Loop) pump(ctx context.Context) {
	for {
		ev, err := l.conn.WaitForEvent()
		if ev == nil && err == nil {
			close(l.events)
			return
		}

		select {
		case l.events <- event{ev: ev, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// drain handles e and every event queued behind it.
func (l *Loop) drain(e event) error {
	l.Dispatch(e.ev, e.err)

	for {
		select {
		case e, ok := <-l.events:
			if !ok {
				return fmt.Errorf("loop: %w", ErrDisplayClosed)
			}
			l.Dispatch(e.ev, e.err)
		default:
			return nil
		}
	}
}

// Redraw runs every widget and presents the result.
func (l *Loop) Redraw() {
	elapsed := l.clock.Tick()

	l.surface.Clear()
	for _, p := range l.producers {
		p.Draw(l.surface, elapsed)
	}

	l.surface.Present(l.tray.IconWidth())
}

// Dispatch handles one display event or asynchronous error.
func (l *Loop) Dispatch(ev xgb.Event, err xgb.Error) {
	if err != nil {
		l.logger.Warn("loop: request failed", "error", err)
		return
	}

	switch e := ev.(type) {
	case xproto.ExposeEvent:
		if e.Count == 0 {
			l.surface.Repaint()
		}
	case xproto.ClientMessageEvent:
		l.tray.HandleClientMessage(e)
	case xproto.ReparentNotifyEvent:
		l.tray.HandleReparent(e)
	case xproto.DestroyNotifyEvent:
		l.tray.HandleDestroy(e)
	}
}
