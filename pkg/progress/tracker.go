// Package progress tracks upload and transcription progress for a single run
// and renders it to a terminal from a background goroutine.
package progress

import (
	"sync"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
)

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Uploaded uint64
	Total    uint64
	Phase    model.Phase
	Message  string
	Started  time.Time
}

// Fraction returns the uploaded share in [0,1], or 0 when the total is unknown.
func (s Snapshot) Fraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Uploaded) / float64(s.Total)
}

// Tracker is shared between the request path, which writes byte counts and
// phases, and the render goroutine, which only reads snapshots.
type Tracker struct {
	mu       sync.Mutex
	uploaded uint64
	total    uint64
	phase    model.Phase
	message  string
	started  time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		phase:   model.PhasePreparing,
		message: "Preparing...",
		started: time.Now(),
	}
}

func (t *Tracker) SetTotal(total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	if t.total > 0 && t.uploaded > t.total {
		t.uploaded = t.total
	}
}

// Advance adds n uploaded bytes. The counter never passes a known total.
func (t *Tracker) Advance(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.uploaded += n
	if t.total > 0 && t.uploaded > t.total {
		t.uploaded = t.total
	}
}

// SetPhase moves to phase with a display message. Once a terminal phase is
// reached later calls are ignored.
func (t *Tracker) SetPhase(phase model.Phase, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase.Terminal() {
		return
	}
	t.phase = phase
	t.message = message
}

// Reset zeroes the uploaded counter and keeps the total.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.uploaded = 0
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		Uploaded: t.uploaded,
		Total:    t.total,
		Phase:    t.phase,
		Message:  t.message,
		Started:  t.started,
	}
}
