// Package provider talks to the chat-completion service that performs the
// actual translation.
package provider

import "context"

// Completer turns a system prompt and user text into a completion.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}
