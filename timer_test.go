package panel

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

type readResult struct {
	n   int
	err error
}

// scriptedReader returns one result per Read call, then os.ErrClosed.
type scriptedReader struct {
	results []readResult
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.results) == 0 {
		return 0, os.ErrClosed
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res.n, res.err
}

func TestReadTicks(t *testing.T) {
	tests := []struct {
		name    string
		results []readResult
		ticks   int
	}{
		{
			name:    "Empty reads are skipped",
			results: []readResult{{0, io.EOF}, {0, nil}},
			ticks:   0,
		},
		{
			name:    "Tick after empty read",
			results: []readResult{{0, io.EOF}, {8, nil}},
			ticks:   1,
		},
		{
			name:    "Pending ticks are merged",
			results: []readResult{{8, nil}, {8, nil}, {8, nil}},
			ticks:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := make(chan error, 1)

			readTicks(&scriptedReader{results: tt.results}, c)

			if len(c) != tt.ticks {
				t.Fatalf("delivered %d values, want %d", len(c), tt.ticks)
			}
			if tt.ticks > 0 {
				if err := <-c; err != nil {
					t.Errorf("tick = %v, want nil", err)
				}
			}
		})
	}
}

func TestReadTicksFailure(t *testing.T) {
	readErr := errors.New("bad file descriptor")
	c := make(chan error, 1)

	readTicks(&scriptedReader{results: []readResult{{0, readErr}}}, c)

	if err := <-c; !errors.Is(err, readErr) {
		t.Errorf("error = %v, want %v", err, readErr)
	}
}

func TestReadTicksPipe(t *testing.T) {
	t.Run("Closed reader", func(t *testing.T) {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatal(err)
		}
		defer w.Close()

		c := make(chan error, 1)
		done := make(chan struct{})
		go func() {
			readTicks(r, c)
			close(done)
		}()

		if _, err := w.Write(make([]byte, 8)); err != nil {
			t.Fatal(err)
		}
		if err := <-c; err != nil {
			t.Fatalf("tick = %v, want nil", err)
		}

		r.Close()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("reader still running after close")
		}
		if len(c) != 0 {
			t.Errorf("value delivered after close: %v", <-c)
		}
	})

	t.Run("Endless empty reads", func(t *testing.T) {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()
		w.Close()

		c := make(chan error, 1)
		readTicks(r, c)

		if err := <-c; !errors.Is(err, io.ErrNoProgress) {
			t.Errorf("error = %v, want %v", err, io.ErrNoProgress)
		}
	})
}

func TestNewTimer(t *testing.T) {
	if _, err := NewTimer(0); err == nil {
		t.Errorf("NewTimer(0) succeeded")
	}

	timer, err := NewTimer(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewTimer() error = %v", err)
	}

	if timer.Period() != 20*time.Millisecond {
		t.Errorf("Period() = %v", timer.Period())
	}

	select {
	case err := <-timer.C:
		if err != nil {
			t.Fatalf("tick = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick from timer")
	}

	timer.Stop()

	// At most one tick may already be pending; no error may follow.
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case err := <-timer.C:
			if err != nil {
				t.Fatalf("error after Stop: %v", err)
			}
		case <-deadline:
			return
		}
	}
}
