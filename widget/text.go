package widget

import (
	"image/color"

	"github.com/shelepuginivan/panel"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
)

var textFont = &freemono.Regular9pt7b

// Height of a digit above the baseline.
const digitHeight = 11

// display lets tinyfont draw on a [panel.Canvas].
type display struct {
	canvas panel.Canvas
	width  int
}

var _ drivers.Displayer = display{}

func (d display) Size() (int16, int16) {
	return int16(d.width), int16(d.canvas.Height())
}

func (d display) SetPixel(x, y int16, c color.RGBA) {
	d.canvas.SetColor(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
	d.canvas.Point(int(x), int(y))
}

func (d display) Display() error {
	return nil
}

// textWidth returns the number of columns s takes.
func textWidth(s string) int {
	_, outbox := tinyfont.LineWidth(textFont, s)
	return int(outbox)
}

// baseline returns the baseline that centers digits vertically in h rows.
func baseline(h int) int {
	return (h + digitHeight) / 2
}

// drawText draws s with its baseline at y, starting at column x.
func drawText(c panel.Canvas, x, y int, s string, rgb uint32) {
	d := display{canvas: c, width: x + textWidth(s)}
	tinyfont.WriteLine(d, textFont, int16(x), int16(y), s, rgba(rgb))
}

func rgba(rgb uint32) color.RGBA {
	return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xFF}
}
