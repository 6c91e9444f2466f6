// Package gemini transcribes local files with Gemini. The audio is streamed
// through the Files API and then referenced from a GenerateContent prompt.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/utils"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

const (
	providerName               = "gemini"
	defaultGenerationModelName = "gemini-2.5-flash"
	transcriptionPrompt        = "Transcribe this audio accurately. Return only the transcript text."
	filePollInterval           = time.Second
)

type transcriptionPayload struct {
	Text string `json:"text"`
}

type Backend struct {
	apiClient *genai.Client
	modelName string
}

func NewBackend(ctx context.Context, opts ...model.Option) (*Backend, error) {
	cfg := model.ResolveOptions(opts...)
	apiKey := strings.TrimSpace(cfg.AuthToken)
	if apiKey == "" {
		return nil, utils.WrapIfNotNil(errors.New("auth token is required"))
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	if baseURL := strings.TrimSpace(cfg.URL); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return &Backend{
		apiClient: client,
		modelName: resolveModelName(cfg),
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
			Err:    errors.New("the gemini provider only accepts local files; use --is-file or the deepgram provider"),
		}
	}
	mimeType, err := resolveAudioMIMEType(input.Value)
	if err != nil {
		return nil, &transcribe.InputError{Reason: transcribe.InputReasonUnsupported, Input: input.Value, Err: err}
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

	log := logging.NewLogger(ctx)
	log.Infof("audio_transcription_request provider=%s model=%q mime=%s", providerName, b.modelName, mimeType)

	uploaded, err := b.apiClient.Files.Upload(ctx, body, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(input.Value),
	})
	if err != nil {
		return responseFromError(err)
	}
	defer b.deleteFile(ctx, uploaded.Name)

	uploaded, err = b.waitForActive(ctx, uploaded)
	if err != nil {
		return responseFromError(err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(transcriptionPrompt),
				genai.NewPartFromURI(uploaded.URI, mimeType),
			},
			genai.RoleUser,
		),
	}
	response, err := b.apiClient.Models.GenerateContent(ctx, b.modelName, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return responseFromError(err)
	}

	payload, err := json.Marshal(transcriptionPayload{Text: response.Text()})
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

func (b *Backend) waitForActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	for file.State == genai.FileStateProcessing {
		timer := time.NewTimer(filePollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, utils.WrapIfNotNil(ctx.Err())
		case <-timer.C:
		}

		next, err := b.apiClient.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, err
		}
		file = next
	}
	if file.State == genai.FileStateFailed {
		return nil, utils.WrapIfNotNil(errors.New("uploaded file failed processing"), file.Name)
	}
	return file, nil
}

func (b *Backend) deleteFile(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if _, err := b.apiClient.Files.Delete(context.WithoutCancel(ctx), name, nil); err != nil {
		logging.NewLogger(ctx).Warnf("gemini_file_cleanup_failed name=%s err=%v", name, err)
	}
}

// responseFromError turns API failures into status responses so the executor
// applies the same policy as other providers. Transport failures stay errors.
func responseFromError(err error) (*transcribe.Response, error) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return nil, utils.WrapIfNotNil(err)
	}
	return &transcribe.Response{
		StatusCode: normalizeStatus(apiErr),
		Body:       []byte(strings.TrimSpace(apiErr.Message)),
	}, nil
}

// Gemini reports a bad key as 400 INVALID_ARGUMENT.
func normalizeStatus(apiErr genai.APIError) int {
	if apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key not valid") {
		return http.StatusUnauthorized
	}
	if apiErr.Code == http.StatusForbidden && apiErr.Status == "PERMISSION_DENIED" {
		return http.StatusUnauthorized
	}
	if apiErr.Code == 0 {
		return http.StatusInternalServerError
	}
	return apiErr.Code
}

func resolveModelName(cfg model.Options) string {
	if modelName := strings.TrimSpace(cfg.Model); modelName != "" {
		return modelName
	}
	return defaultGenerationModelName
}

func resolveAudioMIMEType(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filePath)))
	if ext == "" {
		return "", errors.New("audio file extension is required to determine mime type")
	}

	switch ext {
	case ".wav":
		return "audio/wav", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".m4a", ".mp4":
		return "audio/mp4", nil
	case ".webm":
		return "audio/webm", nil
	case ".ogg":
		return "audio/ogg", nil
	case ".flac":
		return "audio/flac", nil
	case ".aac":
		return "audio/aac", nil
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "", errors.New("unsupported audio file extension: " + ext)
	}
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", errors.New("unsupported audio mime type: " + mimeType)
	}
	return mimeType, nil
}
