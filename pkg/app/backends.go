package app

import (
	"context"
	"fmt"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/config"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/credentials"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/providers/deepgram"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/providers/gemini"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/providers/openai"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
)

// NewBackendFactory returns a factory for the provider selected in cfg.
func NewBackendFactory(cfg *config.Config) (BackendFactory, error) {
	selected := cfg.Selected()
	optsFor := func(apiKey string) []model.Option {
		return []model.Option{
			model.WithURL(selected.BaseURL),
			model.WithModel(selected.Model),
			model.WithAuthToken(apiKey),
			model.WithHTTPTimeout(cfg.HTTPTimeout),
		}
	}

	switch cfg.Provider {
	case config.ProviderDeepgram:
		return func(_ context.Context, apiKey string) (transcribe.Backend, error) {
			backend, err := deepgram.NewBackend(optsFor(apiKey)...)
			if err != nil {
				return nil, err
			}
			return backend, nil
		}, nil
	case config.ProviderOpenAI:
		return func(_ context.Context, apiKey string) (transcribe.Backend, error) {
			backend, err := openai.NewBackend(optsFor(apiKey)...)
			if err != nil {
				return nil, err
			}
			return backend, nil
		}, nil
	case config.ProviderGemini:
		return func(ctx context.Context, apiKey string) (transcribe.Backend, error) {
			backend, err := gemini.NewBackend(ctx, optsFor(apiKey)...)
			if err != nil {
				return nil, err
			}
			return backend, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// NewCredentialStore returns the key file store for the selected provider.
func NewCredentialStore(cfg *config.Config) *credentials.FileStore {
	label := "Deepgram"
	switch cfg.Provider {
	case config.ProviderOpenAI:
		label = "OpenAI"
	case config.ProviderGemini:
		label = "Gemini"
	}
	return &credentials.FileStore{
		Dir:           cfg.ConfigDir,
		FileName:      cfg.KeyFileName(),
		EnvVar:        cfg.Selected().KeyEnv,
		ProviderLabel: label,
	}
}
