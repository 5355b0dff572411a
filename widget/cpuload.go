package widget

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shelepuginivan/panel"
)

// ProcStat is the kernel's CPU time accounting file.
const ProcStat = "/proc/stat"

const (
	maxCPU     = 16
	graphWidth = 60
)

type cpuTimes struct {
	idle uint64
	busy uint64

	// Share of busy time since the previous sample, in tenths of a percent.
	load int
}

type cpuPoint struct {
	max int
	avg int
}

// CPULoad plots the load of the busiest CPU and the average load over the
// last 60 ticks.
type CPULoad struct {
	path  string
	cpus  [maxCPU]cpuTimes
	ncpus int

	graph [graphWidth]cpuPoint
	next  int
}

// NewCPULoad returns a [CPULoad] sampling the stat file at path.
func NewCPULoad(path string) *CPULoad {
	return &CPULoad{path: path}
}

func (w *CPULoad) Draw(c panel.Canvas, elapsed time.Duration) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return
	}

	w.parse(string(data), elapsed)
	w.sample(c.Height())
	w.draw(c)
}

// parse reads the per-CPU lines at the head of the stat file. The aggregate
// "cpu" line is skipped.
func (w *CPULoad) parse(stat string, elapsed time.Duration) {
	for _, line := range strings.Split(stat, "\n") {
		rest, ok := strings.CutPrefix(line, "cpu")
		if !ok {
			break
		}

		fields := strings.Fields(rest)
		if len(fields) < 5 || !strings.HasPrefix(rest, fields[0]) {
			continue
		}

		idx, err := strconv.Atoi(fields[0])
		if err != nil || idx >= maxCPU {
			continue
		}

		var idle, busy uint64
		for i, field := range fields[1:] {
			v, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				break
			}
			// Fourth column is idle time, everything else counts as busy.
			if i == 3 {
				idle += v
			} else {
				busy += v
			}
		}

		w.ncpus = max(w.ncpus, idx+1)
		w.cpus[idx].update(idle, busy, elapsed)
	}
}

func (t *cpuTimes) update(idle, busy uint64, elapsed time.Duration) {
	didle := idle - t.idle
	dbusy := busy - t.busy
	t.idle, t.busy = idle, busy

	total := didle + dbusy
	if total == 0 || elapsed == 0 {
		t.load = 0
		return
	}

	t.load = int(1000 * dbusy / total)
}

func (w *CPULoad) sample(h int) {
	if w.ncpus == 0 {
		return
	}

	peak, sum := 0, 0
	for _, cpu := range w.cpus[:w.ncpus] {
		peak = max(peak, cpu.load)
		sum += cpu.load
	}

	w.graph[w.next] = cpuPoint{
		max: loadScale(peak, h),
		avg: loadScale(sum/w.ncpus, h),
	}
	w.next = (w.next + 1) % graphWidth
}

func loadScale(v, h int) int {
	return v * (h + 1) / 1000
}

// draw plots the oldest sample on the left.
func (w *CPULoad) draw(c panel.Canvas) {
	h := c.Height()

	for i := range graphWidth {
		pt := w.graph[(w.next+i)%graphWidth]
		x := 1 + i
		y := 0

		c.SetColor(0x007BAC)
		for ; y < pt.avg; y++ {
			c.Point(x, h-y-1)
		}

		c.SetColor(0x555555)
		for ; y < pt.max; y++ {
			c.Point(x, h-y-1)
		}
	}

	c.Advance(graphWidth + 2)
}
