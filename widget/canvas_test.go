package widget

import (
	"os"
	"path/filepath"
	"testing"
)

// canvas records what a widget draws, in absolute columns.
type canvas struct {
	height int
	used   int
	cx, cy int
	color  uint32

	pixels   map[[2]int]uint32
	advances []int
}

func newCanvas(height int) *canvas {
	return &canvas{height: height, pixels: make(map[[2]int]uint32)}
}

func (c *canvas) MoveTo(x, y int) {
	c.cx, c.cy = x, y
}

func (c *canvas) SetColor(rgb uint32) {
	c.color = rgb
}

func (c *canvas) Point(x, y int) {
	if y < 0 || y >= c.height || x+c.used < 0 {
		return
	}
	c.pixels[[2]int{c.used + x, y}] = c.color
}

func (c *canvas) Bitmap(data []byte, w, h int) {
	stride := (w + 7) / 8
	for r := range h {
		for col := range w {
			if data[r*stride+col/8]&(1<<(col%8)) != 0 {
				c.Point(c.cx+col, c.cy+r)
			}
		}
	}
	c.cx += w
}

func (c *canvas) Advance(w int) {
	c.used += w
	c.advances = append(c.advances, w)
	c.cx, c.cy = 0, 0
}

func (c *canvas) Height() int {
	return c.height
}

// column returns the colors in column x from the bottom row up, stopping at
// the first empty row.
func (c *canvas) column(x int) []uint32 {
	var col []uint32
	for y := c.height - 1; y >= 0; y-- {
		color, ok := c.pixels[[2]int{x, y}]
		if !ok {
			break
		}
		col = append(col, color)
	}
	return col
}

// colors counts the pixels of each color.
func (c *canvas) colors() map[uint32]int {
	counts := make(map[uint32]int)
	for _, color := range c.pixels {
		counts[color]++
	}
	return counts
}

// bounds returns the range of columns drawn into.
func (c *canvas) bounds() (lo, hi int) {
	lo, hi = -1, -1
	for p := range c.pixels {
		if lo < 0 || p[0] < lo {
			lo = p[0]
		}
		if p[0] > hi {
			hi = p[0]
		}
	}
	return lo, hi
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}
