package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	barWidth            = 40
	clearLine           = "\r\x1b[2K"
)

// Renderer draws snapshots. Rendering is cosmetic, so implementations swallow
// their own write errors.
type Renderer interface {
	Render(snapshot Snapshot, frame int)
	Clear()
}

type NopRenderer struct{}

func (NopRenderer) Render(Snapshot, int) {}

func (NopRenderer) Clear() {}

// TerminalRenderer redraws a single status line in place: an upload bar while
// the byte total is known, then a spinner with the phase message.
type TerminalRenderer struct {
	mu           sync.Mutex
	out          io.Writer
	bar          bubblesprogress.Model
	frames       []string
	messageStyle lipgloss.Style
	elapsedStyle lipgloss.Style
	now          func() time.Time
}

func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{
		out: out,
		bar: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(barWidth),
			bubblesprogress.WithoutPercentage(),
		),
		frames:       spinner.Line.Frames,
		messageStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		elapsedStyle: lipgloss.NewStyle().Faint(true),
		now:          time.Now,
	}
}

func (r *TerminalRenderer) Render(snapshot Snapshot, frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = io.WriteString(r.out, clearLine+r.line(snapshot, frame, r.now()))
}

func (r *TerminalRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = io.WriteString(r.out, clearLine)
}

func (r *TerminalRenderer) line(snapshot Snapshot, frame int, now time.Time) string {
	elapsed := r.elapsedStyle.Render(formatElapsed(now.Sub(snapshot.Started)))
	message := r.messageStyle.Render(snapshot.Message)
	spin := r.frames[frameIndex(frame, len(r.frames))]

	if snapshot.Total == 0 {
		return fmt.Sprintf("%s %s %s", spin, message, elapsed)
	}

	parts := []string{
		"[" + elapsed + "]",
		r.bar.ViewAs(snapshot.Fraction()),
		humanize.Bytes(snapshot.Uploaded) + "/" + humanize.Bytes(snapshot.Total),
		spin,
		message,
	}
	return strings.Join(parts, " ")
}

func frameIndex(frame, count int) int {
	if count == 0 {
		return 0
	}
	idx := frame % count
	if idx < 0 {
		idx += count
	}
	return idx
}

// formatElapsed renders d as HH:MM:SS.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
