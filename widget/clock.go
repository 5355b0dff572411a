package widget

import (
	"time"

	"github.com/shelepuginivan/panel"
)

const (
	clockSynced = 0x00A800
	clockFresh  = 0xFFFFFF
)

// Clock shows the local time as HH:MM:SS.
//
// The time is white on a tick that follows a gap in the timer and green
// otherwise.
type Clock struct {
	now func() time.Time
}

// NewClock returns a [Clock] showing the current time.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (w *Clock) Draw(c panel.Canvas, elapsed time.Duration) {
	color := uint32(clockSynced)
	if elapsed == 0 {
		color = clockFresh
	}

	drawText(c, 0, baseline(c.Height()), w.now().Format("15:04:05"), color)
	c.Advance(textWidth("00:00:00"))
}
