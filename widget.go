package panel

import "time"

// Canvas is the drawing surface handed to widgets.
//
// Coordinates are relative to the widget's own origin: column 0 is the first
// column after everything drawn by the widgets before it.
type Canvas interface {
	// MoveTo sets the bitmap cursor.
	MoveTo(x, y int)

	// SetColor sets the color of subsequent points and bitmaps as 0xRRGGBB.
	SetColor(rgb uint32)

	// Point plots one pixel. Pixels outside the buffer are dropped.
	Point(x, y int)

	// Bitmap draws a 1-bit-per-pixel image at the cursor and moves the
	// cursor right by w. Rows are padded to whole bytes and the least
	// significant bit is the leftmost pixel. Clear bits are transparent.
	Bitmap(data []byte, w, h int)

	// Advance ends the widget's drawing: w columns are reserved and the
	// origin moves past them.
	Advance(w int)

	// Height returns the height of the buffer.
	Height() int
}

// Producer draws one status widget.
//
// Draw is called once per tick with the canvas origin at the next free
// column. elapsed is the time since the previous tick, or zero if the timer
// fell out of step. Draw must call Advance with exactly the width it used,
// and may skip it if it drew nothing.
type Producer interface {
	Draw(c Canvas, elapsed time.Duration)
}

// ProducerFunc adapts a function to [Producer].
type ProducerFunc func(c Canvas, elapsed time.Duration)

func (f ProducerFunc) Draw(c Canvas, elapsed time.Duration) {
	f(c, elapsed)
}
