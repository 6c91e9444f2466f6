package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
)

const (
	listenPath          = "/v1/listen"
	contentTypeAudio    = "application/octet-stream"
	contentTypeJSON     = "application/json"
	authorizationScheme = "Token "
	uploadingMessage    = "Uploading..."
	transcribingMessage = "Transcribing..."
	errDirectoryInput   = "input path is a directory"
)

type urlRequest struct {
	URL string `json:"url"`
}

// RequestBuilder turns an Input into a /v1/listen request. Build is called
// once per attempt; every call opens the file again.
type RequestBuilder struct {
	endpoint string
	apiKey   string
}

func NewRequestBuilder(baseURL string, modelName string, apiKey string) (*RequestBuilder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token is required"))
	}

	endpoint, err := listenEndpoint(baseURL, modelName)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	return &RequestBuilder{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (b *RequestBuilder) Endpoint() string {
	return b.endpoint
}

func (b *RequestBuilder) Build(ctx context.Context, input model.Input, tracker *progress.Tracker) (*http.Request, error) {
	switch input.Kind {
	case model.InputKindFile:
		return b.buildFileRequest(ctx, input.Value, tracker)
	case model.InputKindURL:
		return b.buildURLRequest(ctx, input.Value, tracker)
	default:
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonUnsupported, Input: input.Value}
	}
}

func (b *RequestBuilder) buildFileRequest(ctx context.Context, path string, tracker *progress.Tracker) (*http.Request, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonNotFound, Input: path, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonNotFound, Input: path, Err: err}
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, &transcribe.InputError{
			Reason: transcribe.InputReasonNotFound,
			Input:  path,
			Err:    errors.New(errDirectoryInput),
		}
	}

	tracker.SetTotal(uint64(info.Size()))
	tracker.SetPhase(model.PhaseUploading, uploadingMessage)

	body := progress.NewCountingReader(file, tracker)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		_ = body.Close()
		return nil, utils.WrapIfNotNil(err)
	}
	request.ContentLength = info.Size()
	request.Header.Set("Content-Type", contentTypeAudio)
	b.authorize(request)

	return request, nil
}

func (b *RequestBuilder) buildURLRequest(ctx context.Context, rawURL string, tracker *progress.Tracker) (*http.Request, error) {
	parsed, err := parseRemoteURL(rawURL)
	if err != nil {
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonInvalidURL, Input: rawURL, Err: err}
	}

	payload, err := json.Marshal(urlRequest{URL: parsed.String()})
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	tracker.SetPhase(model.PhaseTranscribing, transcribingMessage)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	request.Header.Set("Content-Type", contentTypeJSON)
	b.authorize(request)

	return request, nil
}

func (b *RequestBuilder) authorize(request *http.Request) {
	request.Header.Set("Authorization", authorizationScheme+b.apiKey)
	request.Header.Set("Accept", contentTypeJSON)
}

// parseRemoteURL accepts absolute http(s) URLs with a host.
func parseRemoteURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, errors.New("url must be absolute")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, errors.New("url scheme must be http or https")
	}
	return parsed, nil
}

func listenEndpoint(baseURL string, modelName string) (string, error) {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultModelName
	}

	endpoint, err := url.Parse(base + listenPath)
	if err != nil {
		return "", err
	}
	if !endpoint.IsAbs() || endpoint.Host == "" {
		return "", errors.New("base url must be absolute: " + baseURL)
	}

	query := endpoint.Query()
	query.Set("model", strings.TrimSpace(modelName))
	query.Set("smart_format", "true")
	query.Set("paragraphs", "true")
	query.Set("diarize", "true")
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}
