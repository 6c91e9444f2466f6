package progress

import (
	"sync"
	"time"
)

// Ticker redraws the tracker on a fixed interval until Stop is called.
// It holds a reference to the tracker, never ownership.
type Ticker struct {
	tracker  *Tracker
	renderer Renderer
	interval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func StartTicker(tracker *Tracker, renderer Renderer, interval time.Duration) *Ticker {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	t := &Ticker{
		tracker:  tracker,
		renderer: renderer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *Ticker) loop() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	frame := 0
	t.draw(frame)
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			frame++
			t.draw(frame)
		}
	}
}

func (t *Ticker) draw(frame int) {
	defer func() {
		_ = recover()
	}()
	t.renderer.Render(t.tracker.Snapshot(), frame)
}

// Stop signals the loop, waits for it to exit and clears the status line.
// Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		<-t.done
		t.renderer.Clear()
	})
}
