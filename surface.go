package panel

import "github.com/jezek/xgb/xproto"

// Surface is the off-screen pixel buffer the widgets draw into, together
// with the on-screen panel window it is presented in.
//
// The window shows the icon area in columns [0, iconWidth) and the widgets
// right after it.
type Surface struct {
	conn   Conn
	window xproto.Window
	pixmap xproto.Pixmap

	pixels []uint32
	width  int
	height int

	// Width drawn by widgets during the current tick.
	used int

	// Bitmap cursor and color.
	cx, cy int
	color  uint32

	// Width of the window as last requested from the server. Zero means the
	// window is unmapped.
	committed int
	iconWidth int
}

// NewSurface returns a [Surface] drawing into pixels, a width×height buffer
// that backs pixmap, presented in window. committed is the current width of
// window, zero if it is unmapped.
func NewSurface(conn Conn, window xproto.Window, pixmap xproto.Pixmap, pixels []uint32, width, height, committed int) *Surface {
	return &Surface{
		conn:      conn,
		window:    window,
		pixmap:    pixmap,
		pixels:    pixels[:width*height],
		width:     width,
		height:    height,
		committed: committed,
	}
}

// Clear zeroes the buffer and resets the used width.
func (s *Surface) Clear() {
	clear(s.pixels)
	s.used = 0
	s.cx, s.cy = 0, 0
}

// Used returns the width drawn by widgets since the last Clear.
func (s *Surface) Used() int {
	return s.used
}

// Committed returns the width last requested for the window.
func (s *Surface) Committed() int {
	return s.committed
}

// Height implements [Canvas].
func (s *Surface) Height() int {
	return s.height
}

// MoveTo implements [Canvas].
func (s *Surface) MoveTo(x, y int) {
	s.cx, s.cy = x, y
}

// SetColor implements [Canvas].
func (s *Surface) SetColor(rgb uint32) {
	s.color = rgb
}

// Point implements [Canvas].
func (s *Surface) Point(x, y int) {
	x += s.used
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.pixels[y*s.width+x] = s.color
}

// Bitmap implements [Canvas].
func (s *Surface) Bitmap(data []byte, w, h int) {
	stride := (w + 7) / 8

	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			i := r*stride + c/8
			if i >= len(data) {
				break
			}
			if data[i]&(1<<(c%8)) == 0 {
				continue
			}
			s.Point(s.cx+c, s.cy+r)
		}
	}

	s.cx += w
}

// Advance implements [Canvas].
func (s *Surface) Advance(w int) {
	s.used += w
	s.cx, s.cy = 0, 0
}

// Present brings the window in line with the icon area and the widgets drawn
// this tick, then copies the widget pixels onto it.
//
// A window that would be zero pixels wide is unmapped instead, and mapped
// again once there is something to show.
func (s *Surface) Present(iconWidth int) {
	desired := iconWidth + s.used
	s.iconWidth = iconWidth

	if desired != s.committed {
		if desired == 0 {
			s.conn.UnmapWindow(s.window)
		} else {
			s.conn.ResizeWindow(s.window, uint16(desired))
			if s.committed == 0 {
				s.conn.MapWindow(s.window)
			}
		}
		s.committed = desired
	}

	s.blit()
	s.conn.Flush()
}

// Repaint copies the last composed buffer onto the window again without
// redrawing the widgets. It is used when the window is exposed.
func (s *Surface) Repaint() {
	if s.committed == 0 {
		return
	}
	s.blit()
	s.conn.Flush()
}

func (s *Surface) blit() {
	used := min(s.used, s.width)
	if used == 0 {
		return
	}

	s.conn.CopyArea(xproto.Drawable(s.pixmap), s.window,
		0, int16(s.iconWidth), uint16(used), uint16(s.height))
}
