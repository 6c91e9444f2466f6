package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAPIKey       = errors.New("invalid API key")
	ErrAPI                 = errors.New("API request failed")
	ErrMaxRetriesExceeded  = errors.New("max retries reached")
	ErrMalformedResponse   = errors.New("malformed API response")
	errUnknownTranscribing = errors.New("transcription failed")
)

type InputReason int

const (
	InputReasonInvalidURL InputReason = iota + 1
	InputReasonNotFound
	InputReasonUnsupported
)

// InputError is raised before any network call. It is never retried.
type InputError struct {
	Reason InputReason
	Input  string
	Err    error
}

func (e *InputError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case InputReasonInvalidURL:
		return "Invalid URL provided"
	case InputReasonNotFound:
		if e.Err != nil {
			return fmt.Sprintf("cannot open input file %q: %v", e.Input, e.Err)
		}
		return fmt.Sprintf("cannot open input file %q", e.Input)
	case InputReasonUnsupported:
		if e.Err != nil {
			return e.Err.Error()
		}
		return fmt.Sprintf("unsupported input %q", e.Input)
	default:
		return fmt.Sprintf("invalid input %q", e.Input)
	}
}

func (e *InputError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

type Kind int

const (
	KindInvalidAPIKey Kind = iota + 1
	KindAPI
	KindMaxRetriesExceeded
	KindMalformedResponse
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidAPIKey:
		return ErrInvalidAPIKey
	case KindAPI:
		return ErrAPI
	case KindMaxRetriesExceeded:
		return ErrMaxRetriesExceeded
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return errUnknownTranscribing
	}
}

// Error is a terminal transcription failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Attempts   int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindInvalidAPIKey:
		return "Invalid API key"
	case KindAPI:
		msg := fmt.Sprintf("API request failed with status: %d", e.StatusCode)
		if body := strings.TrimSpace(e.Body); body != "" {
			msg += "\nResponse body: " + body
		}
		return msg
	case KindMaxRetriesExceeded:
		msg := fmt.Sprintf("Max retries reached after %d attempts. Unable to connect to the transcription API", e.Attempts)
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return msg
	case KindMalformedResponse:
		if e.Reason != "" {
			return "Failed to extract transcript: " + e.Reason
		}
		return "Failed to extract transcript"
	default:
		return errUnknownTranscribing.Error()
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == e.Kind.sentinel()
}

func NewMalformedResponseError(reason string) error {
	return &Error{Kind: KindMalformedResponse, Reason: reason}
}
