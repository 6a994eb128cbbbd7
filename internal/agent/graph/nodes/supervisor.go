package nodes

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/conversations"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/parsers"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/prompts"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

// Supervisor is the entry node of the graph. It loads the thread's history,
// short-circuits the history sentinel, and otherwise asks the routing model
// which agent should handle the query.
type Supervisor struct {
	chatModel einomodel.BaseChatModel
	manager   *conversations.MessagesManager
	modelName string
	recorder  model.UsageRecorder
}

func NewSupervisor(chatModel einomodel.BaseChatModel, manager *conversations.MessagesManager, cfg model.SupervisorModelConfig, recorder model.UsageRecorder) *Supervisor {
	return &Supervisor{
		chatModel: chatModel,
		manager:   manager,
		modelName: cfg.Model,
		recorder:  recorder,
	}
}

// Route produces the routing decision for one turn. Malformed routing output
// fails the turn; a well-formed label outside the closed set falls back to
// the misleading agent so off-script model behavior degrades gracefully.
func (s *Supervisor) Route(ctx context.Context, in *model.QueryInput) (*model.SupervisorDecision, error) {
	query := strings.TrimSpace(in.Query)

	history, err := s.manager.LoadHistory(ctx, in.ThreadID)
	if err != nil {
		return nil, errx.WrapSupervisor(err)
	}

	if err := compose.ProcessState(ctx, func(_ context.Context, st *model.AppState) error {
		st.ThreadID = in.ThreadID
		st.UserQuery = query
		st.History = history
		return nil
	}); err != nil {
		return nil, errx.WrapSupervisor(err)
	}

	// The sentinel is a meta query about the checkpoint itself; it is
	// answered directly and never persisted.
	if strings.EqualFold(query, model.HistorySentinel) {
		logx.Debug().Str("thread_id", in.ThreadID).Msg("history sentinel, bypassing routing")
		return &model.SupervisorDecision{HistoryOnly: true}, nil
	}

	system, err := prompts.RenderSupervisorSystem(ctx, s.manager.SupervisorContext(history))
	if err != nil {
		return nil, errx.WrapSupervisor(err)
	}

	reply, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompts.RenderSupervisorUser(query)),
	})
	if err != nil {
		return nil, errx.WrapSupervisor(err)
	}
	s.recordUsage(ctx, query, reply)

	label, err := parsers.ParseSupervisorDecision(reply.Content)
	if err != nil {
		return nil, errx.WrapSupervisor(err)
	}

	name, ok := model.ParseAgentName(label)
	if !ok {
		logx.Warn().Str("label", label).Msg("supervisor emitted unknown agent label, falling back")
		name = model.AgentMisleading
	}

	logx.Info().
		Str("thread_id", in.ThreadID).
		Str("agent", string(name)).
		Msg("query routed")

	if err := compose.ProcessState(ctx, func(_ context.Context, st *model.AppState) error {
		st.AgentName = name
		return nil
	}); err != nil {
		return nil, errx.WrapSupervisor(err)
	}

	return &model.SupervisorDecision{AgentName: name}, nil
}

func (s *Supervisor) recordUsage(ctx context.Context, query string, reply *schema.Message) {
	if s.recorder == nil {
		return
	}
	rec, ok := model.NewUsageRecord(query, "supervisor", "supervisor", s.modelName, reply)
	if !ok {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		logx.Warn().Err(err).Msg("usage record failed")
	}
}
