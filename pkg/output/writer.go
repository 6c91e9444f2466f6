// Package output persists a finished transcript as a markdown file.
package output

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
)

const (
	filePrefix   = "transcription-"
	fileExt      = ".md"
	stampLayout  = "2006-01-02-15-04-05"
	dirPerm      = 0o755
	artifactPerm = 0o644
)

type Writer struct {
	Dir string
	Now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// FileName returns the artifact name for t, in UTC with second precision.
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(stampLayout) + fileExt
}

// Write stores transcript under Dir and returns the final path. The content
// goes to a temp file first so a failed write never leaves a partial artifact.
func (w *Writer) Write(transcript string) (string, error) {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(w.Dir, dirPerm); err != nil {
		return "", utils.WrapIfNotNil(err, w.Dir)
	}

	path := filepath.Join(w.Dir, FileName(now()))
	tmp, err := os.CreateTemp(w.Dir, ".transcription-*.tmp")
	if err != nil {
		return "", utils.WrapIfNotNil(err, w.Dir)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(transcript); err != nil {
		_ = tmp.Close()
		return "", utils.WrapIfNotNil(err, tmpName)
	}
	if err := tmp.Chmod(artifactPerm); err != nil {
		_ = tmp.Close()
		return "", utils.WrapIfNotNil(err, tmpName)
	}
	if err := tmp.Close(); err != nil {
		return "", utils.WrapIfNotNil(err, tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", utils.WrapIfNotNil(err, path)
	}
	committed = true
	return path, nil
}
