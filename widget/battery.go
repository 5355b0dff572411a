package widget

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shelepuginivan/panel"
)

// PowerSupplyDir holds one directory per power supply.
const PowerSupplyDir = "/sys/class/power_supply"

const (
	batteryWidth  = 60
	batteryMargin = 5

	// Ticks to wait before reading a battery that failed to read.
	batteryRetry = 1000

	// Minimum discharge current, in µA, for a remaining time estimate.
	batteryMinCurrent = 10000
)

type batteryStatus int

const (
	batteryInactive batteryStatus = iota
	batteryCharging
	batteryDischarging
)

// Battery shows the charge of a battery as a bar, with the remaining time
// while it discharges. Nothing is drawn when the battery is full or idle.
type Battery struct {
	path     string
	disabled int

	status     batteryStatus
	chargeFull uint64
	chargeNow  uint64
	currentNow uint64
}

// NewBattery returns a [Battery] for the power supply device, e.g. BAT0.
func NewBattery(device string) *Battery {
	return NewBatteryFrom(filepath.Join(PowerSupplyDir, device, "uevent"))
}

// NewBatteryFrom returns a [Battery] reading the uevent file at path.
func NewBatteryFrom(path string) *Battery {
	return &Battery{path: path}
}

func (w *Battery) Draw(c panel.Canvas, _ time.Duration) {
	if w.disabled > 0 {
		w.disabled++
		if w.disabled <= batteryRetry {
			return
		}
		w.disabled = 0
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.disabled = 1
		return
	}

	w.parse(string(data))

	if w.status == batteryInactive || w.chargeFull < 1000 {
		return
	}

	c.Advance(batteryMargin)
	w.drawBorder(c)
	w.drawCharge(c)
	w.drawEstimate(c)
	c.Advance(batteryWidth + batteryMargin)
}

func (w *Battery) parse(uevent string) {
	w.chargeNow = 0

	for _, line := range strings.Split(uevent, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		switch key {
		case "POWER_SUPPLY_CHARGE_FULL":
			w.chargeFull, _ = strconv.ParseUint(value, 10, 64)
		case "POWER_SUPPLY_CHARGE_NOW":
			w.chargeNow, _ = strconv.ParseUint(value, 10, 64)
		case "POWER_SUPPLY_CURRENT_NOW":
			w.currentNow, _ = strconv.ParseUint(value, 10, 64)
		case "POWER_SUPPLY_STATUS":
			switch value {
			case "Charging":
				w.status = batteryCharging
			case "Discharging":
				w.status = batteryDischarging
			default:
				w.status = batteryInactive
			}
		}
	}
}

func (w *Battery) drawBorder(c panel.Canvas) {
	h := c.Height()

	c.SetColor(0x888888)

	for x := 2; x < batteryWidth-2; x++ {
		c.Point(x, 2)
		c.Point(x, h-3)
	}

	for y := 2; y < h-2; y++ {
		c.Point(2, y)
		c.Point(batteryWidth-3, y)
	}
}

func (w *Battery) drawCharge(c panel.Canvas) {
	if w.status == batteryCharging {
		c.SetColor(0x4040A0)
	} else {
		c.SetColor(0x007000)
	}

	const ox, oy = 3, 3

	bw := batteryWidth - 2*ox
	bh := c.Height() - 2*oy

	full := w.chargeFull / 1000
	now := w.chargeNow / 1000
	charge := min(int(uint64(bw)*now/full), bw)

	for y := oy; y < oy+bh; y++ {
		for x := ox + bw - charge; x < ox+bw; x++ {
			c.Point(x, y)
		}
	}
}

func (w *Battery) drawEstimate(c panel.Canvas) {
	if w.status != batteryDischarging || w.currentNow < batteryMinCurrent {
		return
	}

	minutes := 60 * w.chargeNow / w.currentNow
	s := formatRemaining(minutes)

	x := 0
	if tw := textWidth(s); tw <= batteryWidth {
		x = batteryWidth/2 - tw/2
	}

	drawText(c, x, baseline(c.Height()), s, 0xFFFFFF)
}

// formatRemaining formats minutes as H:MM.
func formatRemaining(minutes uint64) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
