// Package openai transcribes local files with the OpenAI audio transcription
// API. Remote URLs are not supported by that API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

const (
	providerName                       = "openai"
	defaultAudioTranscriptionModelName = "whisper-1"
)

type transcriptionPayload struct {
	Text string `json:"text"`
}

type Backend struct {
	apiClient openai.Client
	modelName string
}

// NewBackend builds an OpenAI backend. SDK retries are disabled; the
// transcribe.Executor owns the retry policy.
func NewBackend(opts ...model.Option) (*Backend, error) {
	cfg := model.ResolveOptions(opts...)
	apiKey := strings.TrimSpace(cfg.AuthToken)
	if apiKey == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token is required"))
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	if baseURL := strings.TrimSpace(cfg.URL); baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	return &Backend{
		apiClient: openai.NewClient(clientOpts...),
		modelName: resolveAudioTranscriptionModelName(cfg),
	}, nil
}

func (b *Backend) Name() string {
	return providerName
}

func (b *Backend) Send(ctx context.Context, input model.Input, tracker *progress.Tracker) (*transcribe.Response, error) {
	if !input.IsFile() {
		return nil, &transcribe.InputError{
			Reason: transcribe.InputReasonUnsupported,
			Input:  input.Value,
			Err:    errors.New("the openai provider only accepts local files; use --is-file or the deepgram provider"),
		}
	}

	file, err := os.Open(input.Value)
	if err != nil {
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonNotFound, Input: input.Value, Err: err}
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		if err == nil {
			err = errors.New("input path is a directory")
		}
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonNotFound, Input: input.Value, Err: err}
	}

	tracker.SetTotal(uint64(info.Size()))
	tracker.SetPhase(model.PhaseUploading, "Uploading...")
	body := progress.NewCountingReader(file, tracker)
	defer func() {
		_ = body.Close()
	}()

	logging.NewLogger(ctx).Infof(
		"audio_transcription_request provider=%s model=%q",
		providerName,
		b.modelName,
	)

	response, err := b.apiClient.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           body,
		Model:          openai.AudioModel(b.modelName),
		ResponseFormat: openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return &transcribe.Response{
				StatusCode: apiErr.StatusCode,
				Body:       []byte(apiErrorBody(apiErr)),
			}, nil
		}
		return nil, utils.WrapIfNotNil(err)
	}
	if response == nil {
		return nil, utils.WrapIfNotNil(errors.New("audio transcriptions API returned nil response"))
	}

	payload, err := json.Marshal(transcriptionPayload{Text: response.Text})
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &transcribe.Response{StatusCode: http.StatusOK, Body: payload}, nil
}

// Extract reads the top-level "text" field of a transcription payload.
func (b *Backend) Extract(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", transcribe.NewMalformedResponseError("response is not valid JSON")
	}
	text := gjson.GetBytes(body, "text")
	if text.Type != gjson.String {
		return "", transcribe.NewMalformedResponseError("text is missing or not a string")
	}
	return strings.TrimSpace(text.String()), nil
}

func apiErrorBody(apiErr *openai.Error) string {
	message := strings.TrimSpace(apiErr.Message)
	if message != "" {
		return message
	}
	return http.StatusText(apiErr.StatusCode)
}

func resolveAudioTranscriptionModelName(cfg model.Options) string {
	modelName := strings.TrimSpace(cfg.Model)
	if modelName != "" {
		return modelName
	}

	return defaultAudioTranscriptionModelName
}
