// Package transcribe drives a transcription request against a Backend with a
// bounded retry policy and classifies the outcome.
package transcribe

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/Nephrolytics-ai/transcribe-cli/pkg/model"
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/progress"
)

// Response is the raw outcome of one attempt that reached the service.
type Response struct {
	StatusCode int
	Body       []byte
	Attempts   int
}

// Backend sends one attempt. Send builds a fresh request on every call, so a
// file body consumed by a failed attempt is never replayed. It returns a
// Response for any HTTP status and an error only when no response arrived.
// Errors of type *InputError mean nothing was sent.
type Backend interface {
	Name() string
	Send(ctx context.Context, input model.Input, tracker *progress.Tracker) (*Response, error)
	Extract(body []byte) (string, error)
}

// DescribeTransportError turns a send failure into a message for the user.
func DescribeTransportError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Request to the transcription API timed out. Please try again later."
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request to the transcription API timed out. Please try again later."
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		(errors.As(err, &opErr) && opErr.Op == "dial") {
		return "Failed to connect to the transcription API. Please check your internet connection."
	}

	return "Error sending request to the transcription API: " + err.Error()
}
