package sni

import "fmt"

// Icon is one ARGB32 image of a tray item. Pixels are in network byte order,
// row-major, four bytes each.
type Icon struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// NewIconFromDBusPixmap returns a new [Icon] from D-Bus pixmap.
//
// Format of pixmap is as follows
//
//	[<width>, <height>, <bytes>]
//
// Where:
//   - <width>: width of the icon (int32)
//   - <height>: height of the icon (int32)
//   - <bytes>: ARGB32 pixels of the icon ([]byte)
func NewIconFromDBusPixmap(pixmap any) (*Icon, error) {
	data, ok := pixmap.([]any)
	if !ok || len(data) != 3 {
		return nil, fmt.Errorf("invalid pixmap format: expected a slice of 3 elements")
	}

	width, ok := data[0].(int32)
	if !ok {
		return nil, fmt.Errorf("invalid width type: expected int32")
	}

	height, ok := data[1].(int32)
	if !ok {
		return nil, fmt.Errorf("invalid height type: expected int32")
	}

	bytes, ok := data[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid bytes format: expected []byte")
	}

	if width <= 0 || height <= 0 || len(bytes) < int(width)*int(height)*4 {
		return nil, fmt.Errorf("invalid pixmap size: %dx%d with %d bytes", width, height, len(bytes))
	}

	return &Icon{
		Width:  width,
		Height: height,
		Bytes:  bytes,
	}, nil
}

// At returns the pixel at (x, y) as alpha and 0xRRGGBB.
func (icon *Icon) At(x, y int) (alpha uint8, rgb uint32) {
	i := (y*int(icon.Width) + x) * 4
	p := icon.Bytes[i : i+4]

	return p[0], uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

// IconSet holds the same icon at several sizes.
type IconSet []*Icon

// NewIconSetFromDBusProperty returns a new [IconSet] from the value of an
// a(iiay) property. Malformed pixmaps are skipped.
func NewIconSetFromDBusProperty(value any) (IconSet, error) {
	pixmaps, ok := value.([][]any)
	if !ok {
		return nil, fmt.Errorf("invalid icon set format: expected a(iiay)")
	}

	var set IconSet

	for _, pixmap := range pixmaps {
		icon, err := NewIconFromDBusPixmap(pixmap)
		if err != nil {
			continue
		}
		set = append(set, icon)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("icon set is empty")
	}

	return set, nil
}

// Best returns the icon to scale to size pixels high: the smallest one at
// least that high, or the largest one if all are smaller.
func (set IconSet) Best(size int) *Icon {
	var best *Icon

	for _, icon := range set {
		switch {
		case best == nil:
			best = icon
		case int(best.Height) < size && icon.Height > best.Height:
			best = icon
		case int(icon.Height) >= size && icon.Height < best.Height:
			best = icon
		}
	}

	return best
}
