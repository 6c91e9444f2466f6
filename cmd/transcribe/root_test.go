package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/credentials"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
	"github.com/stretchr/testify/suite"
)

type RootCommandSuite struct {
	suite.Suite
	server    *httptest.Server
	status    atomic.Int32
	configDir string
	outputDir string
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
}

func TestRootCommandSuite(t *testing.T) {
	suite.Run(t, new(RootCommandSuite))
}

func (s *RootCommandSuite) SetupTest() {
	s.status.Store(http.StatusOK)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(int(s.status.Load()))
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"from the cli"}]}]}}`))
	}))

	s.configDir = s.T().TempDir()
	s.outputDir = filepath.Join(s.T().TempDir(), "desk")
	s.Require().NoError(os.WriteFile(filepath.Join(s.configDir, "api_key"), []byte("dg-key"), 0o600))

	for _, key := range []string{
		"TRANSCRIBE_PROVIDER", "DEEPGRAM_MODEL", "TRANSCRIBE_MAX_ATTEMPTS",
		"TRANSCRIBE_HTTP_TIMEOUT", "TRANSCRIBE_LOG_LEVEL", "OPENAI_BASE_URL",
	} {
		s.T().Setenv(key, "")
	}
	s.T().Setenv("TRANSCRIBE_CONFIG_DIR", s.configDir)
	s.T().Setenv("TRANSCRIBE_OUTPUT_DIR", s.outputDir)
	s.T().Setenv("DEEPGRAM_BASE_URL", s.server.URL)
	s.T().Setenv("TRANSCRIBE_RETRY_BACKOFF", "0s")

	s.stdout = &bytes.Buffer{}
	s.stderr = &bytes.Buffer{}
}

func (s *RootCommandSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(logging.Configure("", nil))
}

func (s *RootCommandSuite) execute(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(s.stdout)
	cmd.SetErr(s.stderr)
	return cmd.ExecuteContext(context.Background())
}

func (s *RootCommandSuite) TestTranscribesURL() {
	err := s.execute("--input", "https://example.com/talk.mp3")

	s.Require().NoError(err)
	entries, err := os.ReadDir(s.outputDir)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(strings.HasPrefix(entries[0].Name(), "transcription-"))

	contents, err := os.ReadFile(filepath.Join(s.outputDir, entries[0].Name()))
	s.Require().NoError(err)
	s.Equal("from the cli", string(contents))
	s.Contains(s.stdout.String(), "Transcription successful. File saved to ")
	s.Contains(s.stdout.String(), "Total time: ")
}

func (s *RootCommandSuite) TestTranscribesFileWithShortFlags() {
	audio := filepath.Join(s.T().TempDir(), "clip.wav")
	s.Require().NoError(os.WriteFile(audio, []byte("RIFF"), 0o600))
	outDir := filepath.Join(s.T().TempDir(), "flag-out")

	err := s.execute("-i", audio, "-f", "--output-dir", outDir)

	s.Require().NoError(err)
	entries, err := os.ReadDir(outDir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *RootCommandSuite) TestInputIsRequired() {
	err := s.execute()
	s.Error(err)
}

func (s *RootCommandSuite) TestInvalidURLWritesNothing() {
	err := s.execute("--input", "not_a_url")

	s.Require().Error(err)
	s.Equal("Error: Invalid URL provided", formatError(err))
	s.NoDirExists(s.outputDir)
}

func (s *RootCommandSuite) TestUnauthorizedAddsHint() {
	s.status.Store(http.StatusUnauthorized)

	err := s.execute("--input", "https://example.com/talk.mp3")

	s.Require().Error(err)
	s.Equal("Error: Invalid API key\n"+apiKeyHint, formatError(err))
	s.NoDirExists(s.outputDir)
}

func (s *RootCommandSuite) TestUnknownProviderFlag() {
	err := s.execute("--input", "https://example.com/talk.mp3", "--provider", "whisperx")
	s.Error(err)
}

func (s *RootCommandSuite) TestFormatErrorStripsCallSites() {
	wrapped := utils.WrapIfNotNil(credentials.ErrEmptyKeyFile)
	s.Equal("Error: API key file is empty", formatError(wrapped))

	apiErr := fmt.Errorf("outer: %w", &transcribe.Error{Kind: transcribe.KindAPI, StatusCode: 500, Body: "boom"})
	s.Equal("Error: API request failed with status: 500\nResponse body: boom", formatError(apiErr))

	s.Equal("Error: interrupted", formatError(utils.WrapIfNotNil(context.Canceled)))
	s.Equal("Error: plain", formatError(errors.New("plain")))
}

func (s *RootCommandSuite) TestRendererIsNopForBuffers() {
	s.IsType(progress.NopRenderer{}, newRenderer(&bytes.Buffer{}))
}
