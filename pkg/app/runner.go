// Package app wires credentials, a transcription backend, progress reporting
// and the output writer into a single run.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/credentials"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
)

// BackendFactory builds a backend once the API key is known.
type BackendFactory func(ctx context.Context, apiKey string) (transcribe.Backend, error)

type TranscriptWriter interface {
	Write(transcript string) (string, error)
}

type Result struct {
	Transcript string
	OutputPath string
	Elapsed    time.Duration
	Attempts   int
	Metadata   model.RunMetadata
}

type Runner struct {
	Credentials  credentials.Provider
	NewBackend   BackendFactory
	Executor     *transcribe.Executor
	Output       TranscriptWriter
	Renderer     progress.Renderer
	Out          io.Writer
	TickInterval time.Duration

	now func() time.Time
}

// Run transcribes input and writes the transcript. The progress ticker is
// always stopped before Run returns, and nothing is written on failure.
func (r *Runner) Run(ctx context.Context, input model.Input) (*Result, error) {
	logger := logging.NewLogger(ctx).WithField("input", input.String())
	now := r.now
	if now == nil {
		now = time.Now
	}
	started := now()

	apiKey, err := r.Credentials.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	backend, err := r.NewBackend(ctx, apiKey)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	executor := r.Executor
	if executor == nil {
		executor = transcribe.NewExecutor(transcribe.DefaultMaxAttempts, transcribe.DefaultBackoff)
	}

	tracker := progress.NewTracker()
	ticker := progress.StartTicker(tracker, r.Renderer, r.TickInterval)

	transcript, attempts, err := r.transcribe(ctx, executor, backend, input, tracker)
	if err != nil {
		tracker.SetPhase(model.PhaseFailed, "Failed")
		ticker.Stop()
		logger.Debugf("transcription_failed provider=%s err=%v", backend.Name(), err)
		return nil, err
	}
	tracker.SetPhase(model.PhaseDone, "Done")
	ticker.Stop()

	elapsed := now().Sub(started)
	path, err := r.Output.Write(transcript)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	metadata := model.RunMetadata{
		model.MetadataKeyProvider:      backend.Name(),
		model.MetadataKeyInputKind:     input.Kind.String(),
		model.MetadataKeyLatencyMs:     strconv.FormatInt(elapsed.Milliseconds(), 10),
		model.MetadataKeyAPICalls:      strconv.Itoa(attempts),
		model.MetadataKeyBytesUploaded: strconv.FormatUint(tracker.Snapshot().Uploaded, 10),
	}
	logger.Infof("transcription_saved path=%q metadata=%v", path, metadata)

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, "Transcription successful. File saved to %s\n", path)
	_, _ = fmt.Fprintf(out, "Total time: %s\n", elapsed.Round(time.Millisecond))

	return &Result{
		Transcript: transcript,
		OutputPath: path,
		Elapsed:    elapsed,
		Attempts:   attempts,
		Metadata:   metadata,
	}, nil
}

func (r *Runner) transcribe(
	ctx context.Context,
	executor *transcribe.Executor,
	backend transcribe.Backend,
	input model.Input,
	tracker *progress.Tracker,
) (string, int, error) {
	response, err := executor.Execute(ctx, backend, input, tracker)
	if err != nil {
		return "", 0, err
	}
	transcript, err := backend.Extract(response.Body)
	if err != nil {
		return "", response.Attempts, err
	}
	return transcript, response.Attempts, nil
}
