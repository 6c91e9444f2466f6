// Package deepgram sends audio to the Deepgram /v1/listen endpoint, either
// streamed from a local file or referenced by URL.
package deepgram

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
)

const (
	providerName     = "deepgram"
	defaultBaseURL   = "https://api.deepgram.com"
	defaultModelName = "nova-2"
)

type Backend struct {
	builder    *RequestBuilder
	httpClient *http.Client
	modelName  string
}

// NewBackend builds a Deepgram backend. A zero HTTP timeout leaves uploads
// unbounded, which long recordings need.
func NewBackend(opts ...model.Option) (*Backend, error) {
	cfg := model.ResolveOptions(opts...)
	modelName := resolveModelName(cfg)

	builder, err := NewRequestBuilder(cfg.URL, modelName, cfg.AuthToken)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &Backend{
		builder:    builder,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		modelName:  modelName,
	}, nil
}

func (b *Backend) Name() string {
	return providerName
}

func (b *Backend) Send(ctx context.Context, input model.Input, tracker *progress.Tracker) (*transcribe.Response, error) {
	request, err := b.builder.Build(ctx, input, tracker)
	if err != nil {
		return nil, err
	}

	logging.NewLogger(ctx).Infof(
		"transcription_request provider=%s model=%q input_kind=%s",
		providerName,
		b.modelName,
		input.Kind,
	)

	response, err := b.httpClient.Do(request)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err, "read response body")
	}

	return &transcribe.Response{
		StatusCode: response.StatusCode,
		Body:       body,
	}, nil
}

func (b *Backend) Extract(body []byte) (string, error) {
	return ExtractTranscript(body)
}

func resolveModelName(cfg model.Options) string {
	name := strings.TrimSpace(cfg.Model)
	if name != "" {
		return name
	}
	return defaultModelName
}
