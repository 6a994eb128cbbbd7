package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository is the per-thread checkpoint boundary: an ordered
// message log keyed by thread id with append/load/clear semantics.
type ConversationRepository interface {
	// AddMessage appends a message to the thread's persisted log.
	AddMessage(ctx context.Context, threadID string, message *schema.Message) error

	// AddMessages appends messages in order as a single write, so a turn's
	// query/reply pair is never half-persisted.
	AddMessages(ctx context.Context, threadID string, messages ...*schema.Message) error

	// LoadHistory retrieves the persisted log for a thread. A thread with
	// no saved messages yields an empty history, not an error.
	LoadHistory(ctx context.Context, threadID string) (*ConversationHistory, error)

	// ClearHistory removes all persisted messages for a thread.
	ClearHistory(ctx context.Context, threadID string) error

	// GetMessageCount returns the number of persisted messages for a thread.
	GetMessageCount(ctx context.Context, threadID string) (int, error)
}

// ConversationHistory represents loaded checkpoint data with metadata.
type ConversationHistory struct {
	ThreadID string
	Messages []*schema.Message
}
