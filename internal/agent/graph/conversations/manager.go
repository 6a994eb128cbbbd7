package conversations

import (
	"context"
	"strings"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

// MessagesManager mediates all checkpoint access for the graph: loading a
// thread's log, appending turn messages, and rendering the supervisor's
// trailing context window.
type MessagesManager struct {
	repo       model.ConversationRepository
	contextMax int
}

func NewMessagesManager(repo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		repo:       repo,
		contextMax: config.Context.MaxMessages,
	}
}

func (m *MessagesManager) LoadHistory(ctx context.Context, threadID string) ([]*schema.Message, error) {
	history, err := m.repo.LoadHistory(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// SaveExchange appends a completed turn, the user query and the final
// assistant reply, as one repository write so the checkpoint never holds a
// query without its reply.
func (m *MessagesManager) SaveExchange(ctx context.Context, threadID, query, reply string) error {
	return m.repo.AddMessages(ctx, threadID,
		schema.UserMessage(query),
		schema.AssistantMessage(reply, nil),
	)
}

func (m *MessagesManager) MessageCount(ctx context.Context, threadID string) (int, error) {
	return m.repo.GetMessageCount(ctx, threadID)
}

func (m *MessagesManager) Clear(ctx context.Context, threadID string) error {
	return m.repo.ClearHistory(ctx, threadID)
}

// SupervisorContext renders the trailing window of the history as
// "<Role>: <content>" lines for the routing prompt. Only user and assistant
// messages carry routing signal; other roles are skipped.
func (m *MessagesManager) SupervisorContext(messages []*schema.Message) string {
	recent := trimTail(messages, m.contextMax)

	var b strings.Builder
	for _, msg := range recent {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("User: " + msg.Content)
		case schema.Assistant:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("Assistant: " + msg.Content)
		}
	}
	return b.String()
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxMessages int) []*schema.Message {
	if maxMessages <= 0 || len(messages) <= maxMessages {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxMessages:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
