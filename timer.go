package panel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Timer delivers a value on C each time one or more periods have elapsed.
// A nil value is a tick; a non-nil value reports that the timer failed and
// nothing more will be sent.
type Timer struct {
	C      <-chan error
	file   *os.File
	period time.Duration
}

// NewTimer starts a timer firing every period, aligned to multiples of
// period on the real-time clock. The first tick comes at the next boundary.
func NewTimer(period time.Duration) (*Timer, error) {
	if period <= 0 {
		return nil, fmt.Errorf("timer: invalid period %v", period)
	}

	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timer: timerfd_create: %w", err)
	}

	now := time.Now()
	first := now.Truncate(period).Add(period)

	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(first.UnixNano()),
	}

	if err := unix.TimerfdSettime(fd, unix.TFD_TIMER_ABSTIME, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("timer: timerfd_settime: %w", err)
	}

	c := make(chan error, 1)
	t := &Timer{
		C:      c,
		file:   os.NewFile(uintptr(fd), "timerfd"),
		period: period,
	}

	go readTicks(t.file, c)

	return t, nil
}

// Period returns the interval between ticks.
func (t *Timer) Period() time.Duration {
	return t.period
}

// Stop stops the timer. No more values are sent on C.
func (t *Timer) Stop() {
	t.file.Close()
}

// Reads in a row that may return nothing before the timer is considered
// broken.
const maxSpuriousReads = 64

// readTicks reads expirations from r. Ticks that arrive while the previous one is
// still pending are merged into it. Empty reads are spurious wakeups and are
// skipped.
func readTicks(r io.Reader, c chan<- error) {
	buf := make([]byte, 8)
	spurious := 0

	for {
		n, err := r.Read(buf)
		if errors.Is(err, os.ErrClosed) {
			return
		}
		if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
			if spurious++; spurious < maxSpuriousReads {
				continue
			}
			err = io.ErrNoProgress
		}
		if err != nil {
			c <- fmt.Errorf("timer: read: %w", err)
			return
		}
		spurious = 0

		select {
		case c <- nil:
		default:
		}
	}
}
