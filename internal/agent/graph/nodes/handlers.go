package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/conversations"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

// AgentRunner is implemented by the three specialist agents.
type AgentRunner interface {
	Name() model.AgentName
	Run(ctx context.Context, query string, history []*schema.Message) (*schema.Message, error)
}

// Handler adapts one agent into a terminal graph node. It owns turn
// persistence: the user query and the final reply are appended to the
// checkpoint together, only after the agent succeeds, so a failed turn never
// leaves a half-written exchange behind.
type Handler struct {
	agent   AgentRunner
	manager *conversations.MessagesManager
}

func NewHandler(agent AgentRunner, manager *conversations.MessagesManager) *Handler {
	return &Handler{agent: agent, manager: manager}
}

func (h *Handler) Handle(ctx context.Context, _ *model.SupervisorDecision) (*model.TurnResult, error) {
	var threadID, query string
	var history []*schema.Message
	if err := compose.ProcessState(ctx, func(_ context.Context, st *model.AppState) error {
		threadID = st.ThreadID
		query = st.UserQuery
		history = st.History
		return nil
	}); err != nil {
		return nil, errx.WrapAgent(string(h.agent.Name()), err)
	}

	final, err := h.agent.Run(ctx, query, history)
	if err != nil {
		return nil, err
	}
	if final == nil || final.Content == "" {
		return nil, errx.WrapAgent(string(h.agent.Name()), fmt.Errorf("agent produced no reply"))
	}

	if err := h.manager.SaveExchange(ctx, threadID, query, final.Content); err != nil {
		return nil, errx.WrapAgent(string(h.agent.Name()), err)
	}

	userMsg := schema.UserMessage(query)
	assistantMsg := schema.AssistantMessage(final.Content, nil)

	if err := compose.ProcessState(ctx, func(_ context.Context, st *model.AppState) error {
		st.AgentOutput = final.Content
		st.History = append(st.History, userMsg, assistantMsg)
		return nil
	}); err != nil {
		return nil, errx.WrapAgent(string(h.agent.Name()), err)
	}

	return &model.TurnResult{
		AgentName:   h.agent.Name(),
		AgentOutput: final.Content,
		Messages:    []*schema.Message{userMsg, assistantMsg},
	}, nil
}

// HistoryReporter answers the history sentinel with the checkpointed
// messages and their count. The history was loaded into the graph state at
// turn start, so no repository round trip is needed here.
type HistoryReporter struct{}

func NewHistoryReporter() *HistoryReporter {
	return &HistoryReporter{}
}

func (r *HistoryReporter) Report(ctx context.Context, _ *model.SupervisorDecision) (*model.TurnResult, error) {
	var threadID string
	var history []*schema.Message
	if err := compose.ProcessState(ctx, func(_ context.Context, st *model.AppState) error {
		threadID = st.ThreadID
		history = st.History
		return nil
	}); err != nil {
		return nil, err
	}

	logx.Debug().Str("thread_id", threadID).Int("messages", len(history)).Msg("history report")
	return historyReport(history), nil
}

func historyReport(history []*schema.Message) *model.TurnResult {
	return &model.TurnResult{
		AgentOutput: fmt.Sprintf("Conversation history contains %d messages.", len(history)),
		Messages:    history,
	}
}
