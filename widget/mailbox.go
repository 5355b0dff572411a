package widget

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shelepuginivan/panel"
	"golang.org/x/sys/unix"
)

type mailState int32

const (
	mailNone mailState = iota
	mailOld
	mailNew
)

var (
	envelopeNew = xbm(
		"################",
		"##............##",
		"#.#..........#.#",
		"#..#........#..#",
		"#...#......#...#",
		"#....#....#....#",
		"#.....#..#.....#",
		"#......##......#",
		"#..............#",
		"#..............#",
		"#..............#",
		"################",
	)
	envelopeOld = xbm(
		"................",
		".......##.......",
		".....##..##.....",
		"...##......##...",
		".##..........##.",
		"################",
		"#..............#",
		"#..............#",
		"#..............#",
		"#..............#",
		"#..............#",
		"################",
	)
)

const envelopeWidth = 16

// Mailbox shows whether a mail spool holds unread mail. Nothing is drawn
// when the spool is missing or empty.
//
// The spool is watched for changes rather than polled on every tick.
type Mailbox struct {
	path    string
	state   atomic.Int32
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewMailbox returns a [Mailbox] watching the spool at path, usually $MAIL.
// An empty path yields a mailbox that never draws anything.
func NewMailbox(path string, logger *slog.Logger) (*Mailbox, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mailbox{
		path:   filepath.Clean(path),
		logger: logger,
	}

	if path == "" {
		return m, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("mailbox: failed to create watcher: %w", err)
	}

	// The spool is often replaced rather than written in place, so watch
	// its directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("mailbox: failed to watch %s: %w", m.path, err)
	}

	m.watcher = watcher
	m.refresh()

	go m.watch()

	return m, nil
}

// Close stops watching the spool.
func (m *Mailbox) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}

func (m *Mailbox) watch() {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == m.path {
				m.refresh()
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("mailbox: watch failed", "path", m.path, "err", err)
		}
	}
}

func (m *Mailbox) refresh() {
	m.state.Store(int32(spoolState(m.path)))
}

// spoolState reports new mail when the spool was modified after it was last
// read.
func spoolState(path string) mailState {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil || st.Size == 0 {
		return mailNone
	}

	if st.Atim.Sec < st.Mtim.Sec {
		return mailNew
	}
	return mailOld
}

func (m *Mailbox) Draw(c panel.Canvas, _ time.Duration) {
	switch mailState(m.state.Load()) {
	case mailNew:
		c.SetColor(0x00A800)
		drawBox(c, envelopeNew)
	case mailOld:
		c.SetColor(0x666666)
		drawBox(c, envelopeOld)
	}
}

func drawBox(c panel.Canvas, bitmap []byte) {
	h := len(bitmap) / ((envelopeWidth + 7) / 8)

	c.Advance(2)
	c.MoveTo(0, (c.Height()-h)/2)
	c.Bitmap(bitmap, envelopeWidth, h)
	c.Advance(2 + envelopeWidth)
}

// xbm packs rows of '#' and '.' into a bitmap for [panel.Canvas.Bitmap].
func xbm(rows ...string) []byte {
	stride := (len(rows[0]) + 7) / 8
	data := make([]byte, stride*len(rows))

	for r, row := range rows {
		for c, ch := range strings.Split(row, "") {
			if ch == "#" {
				data[r*stride+c/8] |= 1 << (c % 8)
			}
		}
	}

	return data
}
