package providers

import (
	"context"

	"github.com/activmedica/backend/internal/domain/entities"
)

// ChatModel opens stateful conversations with the conversational model.
type ChatModel interface {
	// StartSession opens a conversation seeded with prior history. The
	// returned handle is stateful: each successful Send extends its context.
	StartSession(history []entities.ChatMessage) Conversation
}

// Conversation is a stateful chat handle. A failed Send must not extend the
// conversation's context, so the next call sees the same history.
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
}
