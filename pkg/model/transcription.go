package model

import (
	"strings"
	"time"
)

type InputKind int

const (
	InputKindFile InputKind = iota + 1
	InputKindURL
)

func (k InputKind) String() string {
	switch k {
	case InputKindFile:
		return "file"
	case InputKindURL:
		return "url"
	default:
		return "unknown"
	}
}

// Input describes the audio source for one run. It is built once from the
// command line and never mutated.
type Input struct {
	Kind  InputKind
	Value string
}

func LocalFile(path string) Input {
	return Input{Kind: InputKindFile, Value: path}
}

func RemoteURL(rawURL string) Input {
	return Input{Kind: InputKindURL, Value: strings.TrimSpace(rawURL)}
}

func (i Input) IsFile() bool {
	return i.Kind == InputKindFile
}

func (i Input) String() string {
	return i.Kind.String() + ":" + i.Value
}

type Phase int

const (
	PhasePreparing Phase = iota
	PhaseUploading
	PhaseWaiting
	PhaseTranscribing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseUploading:
		return "uploading"
	case PhaseWaiting:
		return "waiting"
	case PhaseTranscribing:
		return "transcribing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further phase changes are expected.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Options holds the per-backend request settings resolved from config and flags.
type Options struct {
	URL         string
	AuthToken   string
	Model       string
	HTTPTimeout time.Duration
}

type Option interface {
	apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) apply(opts *Options) {
	f(opts)
}

func ResolveOptions(opts ...Option) Options {
	resolved := Options{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&resolved)
		}
	}
	return resolved
}

func WithURL(value string) Option {
	return optionFunc(func(opts *Options) {
		opts.URL = value
	})
}

func WithAuthToken(value string) Option {
	return optionFunc(func(opts *Options) {
		opts.AuthToken = value
	})
}

func WithModel(value string) Option {
	return optionFunc(func(opts *Options) {
		opts.Model = value
	})
}

func WithHTTPTimeout(value time.Duration) Option {
	return optionFunc(func(opts *Options) {
		opts.HTTPTimeout = value
	})
}
