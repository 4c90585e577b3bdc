// Package assistant defines the provider-neutral interface for the chat
// assistant and the tool registry it drives. The concrete Gemini-backed
// implementation lives in internal/platform/gemini.
package assistant

import "context"

// Conversation is a single chat session with history. Conversations are not
// safe for concurrent use; each WebSocket connection owns exactly one.
type Conversation interface {
	// Send delivers a user message, runs any tool calls the model requests,
	// and returns the assistant's final text reply.
	Send(ctx context.Context, message string) (string, error)
}

// Assistant creates conversations.
type Assistant interface {
	NewConversation() Conversation
}
