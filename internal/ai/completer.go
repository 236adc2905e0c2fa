package ai

import (
	"context"
	"errors"
)

// Reserved identity authoring AI-generated messages.
const (
	SenderID   = "gemini"
	SenderName = "Gemini AI"
)

// Completer is an opaque text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Categorized completion failures. Anything else counts as unknown.
var (
	ErrRateLimited  = errors.New("completion rate limited")
	ErrUnauthorized = errors.New("completion unauthorized")
	ErrNotFound     = errors.New("completion model not found")
	ErrTimeout      = errors.New("completion timed out")
)

// Diagnostic reply texts emitted in place of an answer when the completion
// service fails.
const (
	ReplyRateLimited  = "Gemini quota exceeded - try again later."
	ReplyUnauthorized = "Gemini API key is invalid or restricted."
	ReplyNotFound     = "Gemini model not found or unavailable."
	ReplyTimeout      = "Gemini did not answer in time."
	ReplyUnknown      = "Gemini error: unable to generate response."
	ReplyEmpty        = "Gemini did not return any response."
)

// Diagnostic maps a completion failure to its fixed reply text.
func Diagnostic(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReplyRateLimited
	case errors.Is(err, ErrUnauthorized):
		return ReplyUnauthorized
	case errors.Is(err, ErrNotFound):
		return ReplyNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReplyTimeout
	default:
		return ReplyUnknown
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}
