package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderDeepgram = "deepgram"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"

	EnvFileName = "config.env"

	defaultConfigDirName = ".transcribe_cli"
	defaultMaxAttempts   = 3
	defaultRetryBackoff  = 5 * time.Second
	defaultLogLevel      = "warn"
)

type Config struct {
	ConfigDir    string
	OutputDir    string
	Provider     string
	Deepgram     ProviderConfig
	OpenAI       ProviderConfig
	Gemini       ProviderConfig
	MaxAttempts  int
	RetryBackoff time.Duration
	HTTPTimeout  time.Duration
	LogLevel     string
}

type ProviderConfig struct {
	BaseURL string
	Model   string
	// KeyEnv names the env var consulted when no key file exists.
	KeyEnv string
}

// Load reads the environment. An optional <configDir>/config.env is applied
// first without overriding variables that are already set.
func Load() (*Config, error) {
	home, _ := os.UserHomeDir()

	configDir := getEnv("TRANSCRIBE_CONFIG_DIR", filepath.Join(home, defaultConfigDirName))
	if err := godotenv.Load(filepath.Join(configDir, EnvFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invalid %s: %w", EnvFileName, err)
	}

	maxAttempts, err := getEnvInt("TRANSCRIBE_MAX_ATTEMPTS", defaultMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_MAX_ATTEMPTS: %w", err)
	}
	backoff, err := getEnvDuration("TRANSCRIBE_RETRY_BACKOFF", defaultRetryBackoff)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_RETRY_BACKOFF: %w", err)
	}
	timeout, err := getEnvDuration("TRANSCRIBE_HTTP_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_HTTP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		ConfigDir: configDir,
		OutputDir: getEnv("TRANSCRIBE_OUTPUT_DIR", filepath.Join(home, "Desktop")),
		Provider:  strings.ToLower(getEnv("TRANSCRIBE_PROVIDER", ProviderDeepgram)),
		Deepgram: ProviderConfig{
			BaseURL: getEnv("DEEPGRAM_BASE_URL", ""),
			Model:   getEnv("DEEPGRAM_MODEL", "nova-2"),
			KeyEnv:  "DEEPGRAM_API_KEY",
		},
		OpenAI: ProviderConfig{
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_AUDIO_MODEL", "whisper-1"),
			KeyEnv:  "OPENAI_API_KEY",
		},
		Gemini: ProviderConfig{
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
			Model:   getEnv("GEMINI_AUDIO_MODEL", "gemini-2.5-flash"),
			KeyEnv:  "GEMINI_KEY",
		},
		MaxAttempts:  maxAttempts,
		RetryBackoff: backoff,
		HTTPTimeout:  timeout,
		LogLevel:     getEnv("TRANSCRIBE_LOG_LEVEL", defaultLogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderDeepgram, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported provider %q (expected %s, %s or %s)", c.Provider, ProviderDeepgram, ProviderOpenAI, ProviderGemini)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative, got %s", c.HTTPTimeout)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory is required")
	}
	return nil
}

// Selected returns the settings of the active provider.
func (c *Config) Selected() ProviderConfig {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderGemini:
		return c.Gemini
	default:
		return c.Deepgram
	}
}

// KeyFileName is the credential file inside ConfigDir. Deepgram uses the
// plain api_key name.
func (c *Config) KeyFileName() string {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
		return c.Provider + "_api_key"
	default:
		return "api_key"
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
