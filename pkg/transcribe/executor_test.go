package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/stretchr/testify/suite"
)

type attemptOutcome struct {
	response *Response
	err      error
}

// scriptedBackend plays back one outcome per Send call and uploads part of
// the file before failing, like an interrupted connection would.
type scriptedBackend struct {
	outcomes       []attemptOutcome
	calls          int
	uploadedAtSend []uint64
	partialUpload  uint64
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Send(_ context.Context, input model.Input, tracker *progress.Tracker) (*Response, error) {
	b.calls++
	b.uploadedAtSend = append(b.uploadedAtSend, tracker.Snapshot().Uploaded)
	if input.IsFile() {
		tracker.SetPhase(model.PhaseUploading, "Uploading...")
		tracker.Advance(b.partialUpload)
	}
	if b.calls > len(b.outcomes) {
		return nil, fmt.Errorf("unexpected call %d", b.calls)
	}
	outcome := b.outcomes[b.calls-1]
	return outcome.response, outcome.err
}

func (b *scriptedBackend) Extract(body []byte) (string, error) {
	return string(body), nil
}

type ExecutorSuite struct {
	suite.Suite
	sleeps   []time.Duration
	executor *Executor
	tracker  *progress.Tracker
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.sleeps = nil
	s.executor = NewExecutor(3, DefaultBackoff)
	s.executor.sleep = func(_ context.Context, d time.Duration) error {
		s.sleeps = append(s.sleeps, d)
		return nil
	}
	s.tracker = progress.NewTracker()
	s.tracker.SetTotal(100)
}

func transient() attemptOutcome {
	return attemptOutcome{err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
}

func status(code int, body string) attemptOutcome {
	return attemptOutcome{response: &Response{StatusCode: code, Body: []byte(body)}}
}

func (s *ExecutorSuite) TestSuccessAfterTwoTransientFailuresResetsUpload() {
	backend := &scriptedBackend{
		outcomes:      []attemptOutcome{transient(), transient(), status(200, "ok")},
		partialUpload: 40,
	}

	response, err := s.executor.Execute(context.Background(), backend, model.LocalFile("a.wav"), s.tracker)

	s.Require().NoError(err)
	s.Equal(3, backend.calls)
	s.Equal(3, response.Attempts)
	s.Equal([]uint64{0, 0, 0}, backend.uploadedAtSend)
	s.Equal([]time.Duration{DefaultBackoff, DefaultBackoff}, s.sleeps)
	s.Equal(uint64(100), s.tracker.Snapshot().Total)
}

func (s *ExecutorSuite) TestExhaustionReportsMaxRetriesAfterExactlyThreeAttempts() {
	backend := &scriptedBackend{
		outcomes: []attemptOutcome{transient(), transient(), transient(), status(200, "never")},
	}

	response, err := s.executor.Execute(context.Background(), backend, model.LocalFile("a.wav"), s.tracker)

	s.Nil(response)
	s.Require().Error(err)
	s.ErrorIs(err, ErrMaxRetriesExceeded)
	s.Equal(3, backend.calls)
	s.Len(s.sleeps, 2)

	var terr *Error
	s.Require().ErrorAs(err, &terr)
	s.Equal(3, terr.Attempts)
	s.Contains(terr.Reason, "Failed to connect")
}

func (s *ExecutorSuite) TestUnauthorizedIsNotRetried() {
	backend := &scriptedBackend{
		outcomes: []attemptOutcome{status(401, `{"err_code":"INVALID_AUTH"}`), status(200, "never")},
	}

	_, err := s.executor.Execute(context.Background(), backend, model.RemoteURL("https://example.com/a.mp3"), s.tracker)

	s.ErrorIs(err, ErrInvalidAPIKey)
	s.Equal(1, backend.calls)
	s.Empty(s.sleeps)
	s.Equal("Invalid API key", err.Error())
}

func (s *ExecutorSuite) TestAPIErrorsAreNotRetried() {
	for _, code := range []int{400, 429, 500, 503} {
		backend := &scriptedBackend{
			outcomes: []attemptOutcome{status(code, "nope"), status(200, "never")},
		}

		_, err := s.executor.Execute(context.Background(), backend, model.LocalFile("a.wav"), s.tracker)

		s.ErrorIs(err, ErrAPI)
		s.Equal(1, backend.calls, "status %d", code)
		var terr *Error
		s.Require().ErrorAs(err, &terr)
		s.Equal(code, terr.StatusCode)
		s.Equal("nope", terr.Body)
		s.Contains(err.Error(), fmt.Sprintf("status: %d", code))
	}
}

func (s *ExecutorSuite) TestInputErrorFailsFast() {
	inputErr := &InputError{Reason: InputReasonInvalidURL, Input: "not_a_url"}
	backend := &scriptedBackend{
		outcomes: []attemptOutcome{{err: inputErr}},
	}

	_, err := s.executor.Execute(context.Background(), backend, model.RemoteURL("not_a_url"), s.tracker)

	s.ErrorIs(err, ErrInvalidInput)
	s.Equal(1, backend.calls)
	s.Empty(s.sleeps)
	s.Equal("Invalid URL provided", err.Error())
}

func (s *ExecutorSuite) TestURLInputDoesNotResetCounters() {
	s.tracker.Advance(10)
	backend := &scriptedBackend{
		outcomes: []attemptOutcome{transient(), status(204, "")},
	}

	_, err := s.executor.Execute(context.Background(), backend, model.RemoteURL("https://example.com/a.mp3"), s.tracker)

	s.Require().NoError(err)
	s.Equal([]uint64{10, 10}, backend.uploadedAtSend)
}

func (s *ExecutorSuite) TestCancelledContextStopsRetrying() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := &scriptedBackend{
		outcomes: []attemptOutcome{{err: context.Canceled}, status(200, "never")},
	}

	_, err := s.executor.Execute(ctx, backend, model.LocalFile("a.wav"), s.tracker)

	s.ErrorIs(err, context.Canceled)
	s.Equal(1, backend.calls)
}

func (s *ExecutorSuite) TestNewExecutorDefaults() {
	executor := NewExecutor(0, -1)
	s.Equal(DefaultMaxAttempts, executor.MaxAttempts)
	s.Equal(DefaultBackoff, executor.Backoff)
}

func (s *ExecutorSuite) TestSleepContextHonoursCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(sleepContext(ctx, time.Hour), context.Canceled)
	s.NoError(sleepContext(context.Background(), time.Millisecond))
}

func (s *ExecutorSuite) TestDescribeTransportError() {
	s.Contains(DescribeTransportError(context.DeadlineExceeded), "timed out")
	s.Contains(DescribeTransportError(&net.OpError{Op: "dial", Err: errors.New("refused")}), "Failed to connect")
	s.Contains(DescribeTransportError(&net.DNSError{Err: "no such host", Name: "api"}), "Failed to connect")
	s.Contains(DescribeTransportError(errors.New("unexpected EOF")), "unexpected EOF")
	s.Empty(DescribeTransportError(nil))
}
