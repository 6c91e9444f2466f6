package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/app"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/config"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/credentials"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/logging"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/output"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const apiKeyHint = "Please check your API key and try again."

type rootFlags struct {
	input     string
	isFile    bool
	outputDir string
	provider  string
	model     string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe an audio file or URL to markdown",
		Long: `transcribe uploads a local audio file, or submits a remote audio URL, to a
speech-to-text service and saves the transcript as a markdown file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTranscribe(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "path to an audio file or an audio URL")
	cmd.Flags().BoolVarP(&flags.isFile, "is-file", "f", false, "treat --input as a local file path")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "directory for the transcript (default $TRANSCRIBE_OUTPUT_DIR or ~/Desktop)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "transcription provider: deepgram, openai or gemini")
	cmd.Flags().StringVar(&flags.model, "model", "", "model name passed to the provider")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runTranscribe(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Configure(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}
	ctx := logging.WithRunID(cmd.Context(), uuid.NewString())

	newBackend, err := app.NewBackendFactory(cfg)
	if err != nil {
		return err
	}
	store := app.NewCredentialStore(cfg)
	store.In = cmd.InOrStdin()
	store.Out = cmd.OutOrStdout()

	runner := &app.Runner{
		Credentials: store,
		NewBackend:  newBackend,
		Executor:    transcribe.NewExecutor(cfg.MaxAttempts, cfg.RetryBackoff),
		Output:      output.NewWriter(cfg.OutputDir),
		Renderer:    newRenderer(cmd.ErrOrStderr()),
		Out:         cmd.OutOrStdout(),
	}

	input := model.RemoteURL(flags.input)
	if flags.isFile {
		input = model.LocalFile(flags.input)
	}

	_, err = runner.Run(ctx, input)
	return err
}

func applyFlags(cfg *config.Config, flags *rootFlags) {
	if dir := strings.TrimSpace(flags.outputDir); dir != "" {
		cfg.OutputDir = dir
	}
	if provider := strings.TrimSpace(flags.provider); provider != "" {
		cfg.Provider = strings.ToLower(provider)
	}
	if name := strings.TrimSpace(flags.model); name != "" {
		switch cfg.Provider {
		case config.ProviderOpenAI:
			cfg.OpenAI.Model = name
		case config.ProviderGemini:
			cfg.Gemini.Model = name
		default:
			cfg.Deepgram.Model = name
		}
	}
}

// newRenderer draws progress only when stderr is an interactive terminal.
func newRenderer(w io.Writer) progress.Renderer {
	f, ok := w.(*os.File)
	if !ok {
		return progress.NopRenderer{}
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return progress.NopRenderer{}
	}
	return progress.NewTerminalRenderer(w)
}

// formatError renders err the way it is shown to the user, without the
// internal call-site prefixes.
func formatError(err error) string {
	var (
		inputErr      *transcribe.InputError
		transcribeErr *transcribe.Error
	)
	switch {
	case errors.As(err, &transcribeErr):
		msg := "Error: " + transcribeErr.Error()
		if transcribeErr.Kind == transcribe.KindInvalidAPIKey {
			msg += "\n" + apiKeyHint
		}
		return msg
	case errors.As(err, &inputErr):
		return "Error: " + inputErr.Error()
	case errors.Is(err, context.Canceled):
		return "Error: interrupted"
	case errors.Is(err, credentials.ErrEmptyKeyFile), errors.Is(err, credentials.ErrNoKeyEntered):
		return "Error: " + innermost(err).Error()
	default:
		return "Error: " + err.Error()
	}
}

func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
