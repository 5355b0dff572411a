package widget

import (
	"math/bits"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shelepuginivan/panel"
)

// ProcNetDev is the kernel's per-interface traffic counters file.
const ProcNetDev = "/proc/net/dev"

const maxDevices = 4

type deviceState int

const (
	deviceMissing deviceState = iota
	devicePresent
	deviceRunning
)

type netPoint struct {
	rx int
	tx int
}

type netDevice struct {
	name  string
	state deviceState

	rx uint64
	tx uint64

	graph [graphWidth]netPoint
	next  int
}

// NetLoad plots the traffic of up to four network interfaces on a
// logarithmic scale, one graph per running interface. Loopback interfaces
// are skipped.
type NetLoad struct {
	path    string
	devices [maxDevices]netDevice

	flags func(name string) (net.Flags, error)
}

// NewNetLoad returns a [NetLoad] sampling the counters file at path.
func NewNetLoad(path string) *NetLoad {
	return &NetLoad{path: path, flags: interfaceFlags}
}

func interfaceFlags(name string) (net.Flags, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, err
	}
	return iface.Flags, nil
}

func (w *NetLoad) Draw(c panel.Canvas, _ time.Duration) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return
	}

	for i := range w.devices {
		w.devices[i].state = deviceMissing
	}

	w.parse(string(data), c.Height())

	for i := range w.devices {
		if w.devices[i].state == deviceMissing {
			w.devices[i] = netDevice{}
		}
	}

	for i := range w.devices {
		if w.devices[i].state == deviceRunning {
			w.devices[i].draw(c)
		}
	}
}

// parse reads the counters file. The first two lines are column headers.
func (w *NetLoad) parse(dev string, h int) {
	lines := strings.Split(dev, "\n")
	if len(lines) < 2 {
		return
	}

	for _, line := range lines[2:] {
		name, counters, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		fields := strings.Fields(counters)
		if len(fields) < 9 {
			continue
		}

		rx, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}

		tx, err := strconv.ParseUint(fields[8], 10, 64)
		if err != nil {
			continue
		}

		w.add(strings.TrimSpace(name), rx, tx, h)
	}
}

func (w *NetLoad) add(name string, rx, tx uint64, h int) {
	flags, err := w.flags(name)
	if err != nil || flags&net.FlagLoopback != 0 {
		return
	}

	d := w.device(name)
	if d == nil {
		return
	}

	var drx, dtx uint64
	if d.name == "" {
		d.name = name
	} else {
		drx, dtx = rx-d.rx, tx-d.tx
	}
	d.rx, d.tx = rx, tx

	if flags&net.FlagRunning != 0 {
		d.state = deviceRunning
	} else {
		d.state = devicePresent
	}

	bar := logScale(drx+dtx, h)
	txbar := txBar(drx, dtx, bar)

	d.graph[d.next] = netPoint{rx: bar - txbar, tx: txbar}
	d.next = (d.next + 1) % graphWidth
}

// device returns the slot tracking name, or a free one. It returns nil when
// all slots are taken.
func (w *NetLoad) device(name string) *netDevice {
	var free *netDevice

	for i := range w.devices {
		d := &w.devices[i]
		if d.name == name {
			return d
		}
		if d.name == "" && free == nil {
			free = d
		}
	}

	return free
}

// logScale maps a byte count to a bar height: one row per doubling above
// 128 bytes, capped below the panel height.
func logScale(total uint64, h int) int {
	if total == 0 {
		return 0
	}

	log := bits.Len64(total)
	if log < 8 {
		return 1
	}

	bar := log - 7
	return min(bar, h-1)
}

// txBar returns the part of bar that belongs to transmitted bytes.
func txBar(rx, tx uint64, bar int) int {
	total := rx + tx
	if total == 0 {
		return 0
	}

	if bar == 1 {
		if rx > tx {
			return 0
		}
		return 1
	}

	return min(int(uint64(bar)*tx/total), bar)
}

func (d *netDevice) draw(c panel.Canvas) {
	h := c.Height()

	for i := range graphWidth {
		pt := d.graph[(d.next+i)%graphWidth]
		x := 1 + i
		y := 0

		c.SetColor(0xB4893B)
		for range pt.tx {
			c.Point(x, h-y-1)
			y++
		}

		c.SetColor(0xA91598)
		for range pt.rx {
			c.Point(x, h-y-1)
			y++
		}
	}

	c.Advance(graphWidth + 2)
}
