package widget

import (
	"time"

	"github.com/shelepuginivan/panel"
	"github.com/shelepuginivan/panel/sni"
)

const (
	iconPadding = 2

	// Pixels with less alpha are left transparent.
	alphaThreshold = 0x80
)

// StatusNotifier draws the icons of StatusNotifierItem applications, scaled
// to the panel height. Passive items and items without pixmaps are skipped.
type StatusNotifier struct {
	states func() []sni.ItemState
}

// NewStatusNotifier returns a [StatusNotifier] showing the items of host.
func NewStatusNotifier(host *sni.Host) *StatusNotifier {
	return &StatusNotifier{
		states: func() []sni.ItemState {
			items := host.Items()
			states := make([]sni.ItemState, 0, len(items))
			for _, item := range items {
				states = append(states, item.State())
			}
			return states
		},
	}
}

func (w *StatusNotifier) Draw(c panel.Canvas, _ time.Duration) {
	size := c.Height() - 2*iconPadding
	if size <= 0 {
		return
	}

	for _, state := range w.states() {
		if !state.Visible() {
			continue
		}

		drawIcon(c, state.Pixmaps().Best(size), size)
		c.Advance(size + 2*iconPadding)
	}
}

// drawIcon scales icon to size×size with nearest-neighbour sampling.
func drawIcon(c panel.Canvas, icon *sni.Icon, size int) {
	for y := range size {
		sy := y * int(icon.Height) / size
		for x := range size {
			sx := x * int(icon.Width) / size

			alpha, rgb := icon.At(sx, sy)
			if alpha < alphaThreshold {
				continue
			}

			c.SetColor(rgb)
			c.Point(iconPadding+x, iconPadding+y)
		}
	}
}
