package progress

import (
	"errors"
	"io"
	"sync"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
)

// CountingReader is a single-pass request body. Each chunk is reported to the
// tracker when the transport reads it, not when it is read from disk ahead of
// time. Restarting an upload means opening a new reader.
type CountingReader struct {
	source  io.ReadCloser
	tracker *Tracker

	doneOnce sync.Once
}

func NewCountingReader(source io.ReadCloser, tracker *Tracker) *CountingReader {
	return &CountingReader{
		source:  source,
		tracker: tracker,
	}
}

func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.source.Read(p)
	if n > 0 && r.tracker != nil {
		r.tracker.Advance(uint64(n))
	}
	if errors.Is(err, io.EOF) && r.tracker != nil {
		r.doneOnce.Do(func() {
			r.tracker.SetPhase(model.PhaseTranscribing, "Transcribing...")
		})
	}
	return n, err
}

func (r *CountingReader) Close() error {
	return r.source.Close()
}

// Name exposes the underlying file name so multipart encoders can pick a
// filename for the upload.
func (r *CountingReader) Name() string {
	if named, ok := r.source.(interface{ Name() string }); ok {
		return named.Name()
	}
	return ""
}
