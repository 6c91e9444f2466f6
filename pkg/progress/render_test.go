package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/stretchr/testify/suite"
)

type RenderSuite struct {
	suite.Suite
}

func TestRenderSuite(t *testing.T) {
	suite.Run(t, new(RenderSuite))
}

func (s *RenderSuite) TestFormatElapsed() {
	s.Equal("00:00:00", formatElapsed(-time.Second))
	s.Equal("00:01:05", formatElapsed(65*time.Second))
	s.Equal("02:00:01", formatElapsed(2*time.Hour+time.Second+400*time.Millisecond))
}

func (s *RenderSuite) TestFrameIndexWraps() {
	s.Equal(0, frameIndex(4, 4))
	s.Equal(3, frameIndex(-1, 4))
	s.Equal(0, frameIndex(5, 0))
}

func (s *RenderSuite) TestUploadLineShowsBytes() {
	renderer := NewTerminalRenderer(&bytes.Buffer{})
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	line := renderer.line(Snapshot{
		Uploaded: 1000,
		Total:    2000,
		Phase:    model.PhaseUploading,
		Message:  "Uploading...",
		Started:  started,
	}, 0, started.Add(3*time.Second))

	s.Contains(line, "1.0 kB/2.0 kB")
	s.Contains(line, "Uploading...")
	s.Contains(line, "00:00:03")
}

func (s *RenderSuite) TestSpinnerLineWithoutTotal() {
	renderer := NewTerminalRenderer(&bytes.Buffer{})
	started := time.Now()

	line := renderer.line(Snapshot{
		Phase:   model.PhaseTranscribing,
		Message: "Transcribing...",
		Started: started,
	}, 1, started)

	s.Contains(line, "Transcribing...")
	s.NotContains(line, "kB")
	s.True(strings.HasPrefix(line, renderer.frames[1]))
}

func (s *RenderSuite) TestRenderAndClearWriteControlSequences() {
	var out bytes.Buffer
	renderer := NewTerminalRenderer(&out)

	renderer.Render(Snapshot{Message: "Preparing...", Started: time.Now()}, 0)
	renderer.Clear()

	s.True(strings.HasPrefix(out.String(), clearLine))
	s.True(strings.HasSuffix(out.String(), clearLine))
	s.Contains(out.String(), "Preparing...")
}
