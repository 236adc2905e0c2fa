package ai

import (
	"context"
	"log"
	"strings"
	"time"

	"groupchat-service/internal/observability"
)

// TriggerMarker is the reserved prefix that invokes the AI reply path.
const TriggerMarker = "@gemini"

// PostFunc re-enters the room's persist+broadcast pipeline with an
// AI-authored message.
type PostFunc func(roomID, text string)

// Orchestrator watches message bodies for the trigger marker and produces
// asynchronous AI replies. The completion call never runs on the sender's
// path: the triggering message is already persisted and broadcast before
// HandleMessage is invoked.
type Orchestrator struct {
	completer Completer
	timeout   time.Duration
	post      PostFunc
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(completer Completer, timeout time.Duration, post PostFunc) *Orchestrator {
	return &Orchestrator{completer: completer, timeout: timeout, post: post}
}

// ExtractPrompt reports whether body triggers an AI reply and returns the
// prompt. The marker must open the body, case-insensitively, followed by at
// least one space; a marker elsewhere in the body does not trigger.
func ExtractPrompt(body string) (string, bool) {
	if len(body) <= len(TriggerMarker) {
		return "", false
	}
	if !strings.EqualFold(body[:len(TriggerMarker)], TriggerMarker) {
		return "", false
	}
	rest := body[len(TriggerMarker):]
	if !strings.HasPrefix(rest, " ") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// HandleMessage evaluates the trigger predicate on an already-delivered
// user message and, on a match, starts exactly one completion call in the
// background.
func (o *Orchestrator) HandleMessage(roomID, body string) {
	prompt, ok := ExtractPrompt(body)
	if !ok {
		return
	}
	go o.reply(roomID, prompt)
}

func (o *Orchestrator) reply(roomID, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	text, err := o.completer.Complete(ctx, prompt)
	observability.IncAICompletion(outcomeOf(err))
	if err != nil {
		log.Printf("ai completion failed room=%s: %v", roomID, err)
		text = Diagnostic(err)
	} else if strings.TrimSpace(text) == "" {
		text = ReplyEmpty
	}

	// The reply is authored for the room, not the triggering session, so it
	// is posted even if that session has since disconnected.
	o.post(roomID, text)
}
