package conversations

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/repo"
)

func newManager(contextMax int) *MessagesManager {
	var cfg model.ConversationConfig
	cfg.Context.MaxMessages = contextMax
	return NewMessagesManager(repo.NewMemoryConversationRepository(), cfg)
}

func TestSupervisorContextRendersRoles(t *testing.T) {
	m := newManager(6)

	messages := []*schema.Message{
		schema.UserMessage("how many cars sold"),
		schema.AssistantMessage("42 cars were sold", nil),
	}
	got := m.SupervisorContext(messages)
	want := "User: how many cars sold\nAssistant: 42 cars were sold"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSupervisorContextWindowsTail(t *testing.T) {
	m := newManager(6)

	var messages []*schema.Message
	for i := 1; i <= 5; i++ {
		messages = append(messages,
			schema.UserMessage(fmt.Sprintf("question %d", i)),
			schema.AssistantMessage(fmt.Sprintf("answer %d", i), nil),
		)
	}

	got := m.SupervisorContext(messages)
	if strings.Contains(got, "question 2") {
		t.Errorf("window leaked old messages: %q", got)
	}
	if !strings.Contains(got, "question 3") || !strings.Contains(got, "answer 5") {
		t.Errorf("window missing recent messages: %q", got)
	}
	if lines := strings.Count(got, "\n") + 1; lines != 6 {
		t.Errorf("got %d lines, want 6", lines)
	}
}

func TestSupervisorContextSkipsNonConversationRoles(t *testing.T) {
	m := newManager(6)

	messages := []*schema.Message{
		schema.SystemMessage("you are a router"),
		schema.UserMessage("hi"),
		schema.ToolMessage("tool output", "call_1"),
		schema.AssistantMessage("hello", nil),
	}
	got := m.SupervisorContext(messages)
	if strings.Contains(got, "router") || strings.Contains(got, "tool output") {
		t.Errorf("non-conversation roles leaked: %q", got)
	}
}

func TestSupervisorContextEmptyHistory(t *testing.T) {
	m := newManager(6)
	if got := m.SupervisorContext(nil); got != "" {
		t.Errorf("got %q for empty history", got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	m := newManager(6)
	ctx := context.Background()

	if err := m.SaveExchange(ctx, "t1", "hello", "hi"); err != nil {
		t.Fatalf("save exchange: %v", err)
	}

	history, err := m.LoadHistory(ctx, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	if history[0].Role != schema.User || history[1].Role != schema.Assistant {
		t.Errorf("unexpected roles: %v, %v", history[0].Role, history[1].Role)
	}

	n, err := m.MessageCount(ctx, "t1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count: got %d, want 2", n)
	}

	if err := m.Clear(ctx, "t1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := m.MessageCount(ctx, "t1"); n != 0 {
		t.Errorf("count after clear: got %d", n)
	}
}
