// Package credentials supplies the API key used to authenticate with the
// transcription service.
package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
)

const (
	DefaultFileName = "api_key"

	dirPerm  = 0o700
	filePerm = 0o600
)

var (
	ErrEmptyKeyFile = errors.New("API key file is empty")
	ErrNoKeyEntered = errors.New("no API key entered")
)

type Provider interface {
	APIKey(ctx context.Context) (string, error)
}

// Static always returns the same key.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", utils.WrapIfNotNil(ErrNoKeyEntered)
	}
	return key, nil
}

// FileStore keeps the key in Dir/FileName. When the file does not exist the
// key comes from EnvVar if set, otherwise the user is prompted on Out, the
// answer is read from In and persisted for later runs.
type FileStore struct {
	Dir           string
	FileName      string
	EnvVar        string
	ProviderLabel string
	In            io.Reader
	Out           io.Writer
}

func (s *FileStore) Path() string {
	name := s.FileName
	if name == "" {
		name = DefaultFileName
	}
	return filepath.Join(s.Dir, name)
}

func (s *FileStore) APIKey(ctx context.Context) (string, error) {
	path := s.Path()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		key := strings.TrimSpace(string(raw))
		if key == "" {
			return "", ErrEmptyKeyFile
		}
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", utils.WrapIfNotNil(err, path)
	}

	if s.EnvVar != "" {
		if key := strings.TrimSpace(os.Getenv(s.EnvVar)); key != "" {
			logging.NewLogger(ctx).Debugf("api_key_source env=%s", s.EnvVar)
			return key, nil
		}
	}

	key, err := s.prompt()
	if err != nil {
		return "", err
	}
	if err := s.save(key); err != nil {
		return "", err
	}
	logging.NewLogger(ctx).Infof("api_key_saved path=%q", path)
	return key, nil
}

func (s *FileStore) prompt() (string, error) {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	in := s.In
	if in == nil {
		in = os.Stdin
	}

	label := s.ProviderLabel
	if label == "" {
		label = "Deepgram"
	}
	_, _ = fmt.Fprintf(out, "%s API key not found. Please enter it:\n", label)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", utils.WrapIfNotNil(err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", ErrNoKeyEntered
	}
	return key, nil
}

func (s *FileStore) save(key string) error {
	if err := os.MkdirAll(s.Dir, dirPerm); err != nil {
		return utils.WrapIfNotNil(err, s.Dir)
	}
	if err := os.WriteFile(s.Path(), []byte(key), filePerm); err != nil {
		return utils.WrapIfNotNil(err, s.Path())
	}

	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintln(out, "API key saved.")
	return nil
}
