// Package agents implements the three specialist handlers the supervisor
// routes to. Each agent seeds its own system prompt per turn; only user
// queries and final replies ever reach the conversation store, so prompts
// and tool traffic stay out of persisted history.
package agents

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/prompts"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/toolloop"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/tools"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

// TextToSQLAgent answers showroom data questions by generating and executing
// SQL through the database toolset.
type TextToSQLAgent struct {
	loop      *toolloop.Loop
	dialect   string
	modelName string
	recorder  model.UsageRecorder
}

// NewTextToSQLAgent binds the SQL tools to the chat model's tool loop. The
// chat model must already have the toolset's infos bound.
func NewTextToSQLAgent(ctx context.Context, chatModel einomodel.BaseChatModel, toolset *tools.SQLToolset, cfg model.AgentModelConfig, maxIterations int, recorder model.UsageRecorder) (*TextToSQLAgent, error) {
	loop, err := toolloop.New(ctx, string(model.AgentTextToSQL), chatModel, toolset.Tools(), maxIterations, nil)
	if err != nil {
		return nil, errx.WrapInit("text_to_sql agent", err)
	}
	return &TextToSQLAgent{
		loop:      loop,
		dialect:   toolset.Dialect(),
		modelName: cfg.Model,
		recorder:  recorder,
	}, nil
}

func (a *TextToSQLAgent) Name() model.AgentName {
	return model.AgentTextToSQL
}

// Run executes one database turn: seed the system prompt and query, then
// drive the tool loop to a final reply.
func (a *TextToSQLAgent) Run(ctx context.Context, query string, history []*schema.Message) (*schema.Message, error) {
	system, err := prompts.RenderTextToSQLSystem(ctx, a.dialect)
	if err != nil {
		return nil, errx.WrapAgent(string(model.AgentTextToSQL), err)
	}

	conversation := seedConversation(system, history, prompts.RenderTextToSQLUser(query))

	appended, final, err := a.loop.Run(ctx, conversation)
	recordUsage(ctx, a.recorder, query, model.AgentTextToSQL, a.modelName, appended)
	if err != nil {
		return nil, err
	}

	logx.Debug().Int("messages", len(appended)).Msg("text_to_sql turn complete")
	return final, nil
}

// seedConversation assembles the per-turn message list. When the trailing
// history message is a tool result the turn is a resume of an interrupted
// loop: the history already carries its prompts and is used as-is, with
// nothing re-seeded.
func seedConversation(system string, history []*schema.Message, userContent string) []*schema.Message {
	if n := len(history); n > 0 && history[n-1].Role == schema.Tool {
		resumed := make([]*schema.Message, n)
		copy(resumed, history)
		return resumed
	}

	conversation := make([]*schema.Message, 0, len(history)+2)
	conversation = append(conversation, schema.SystemMessage(system))
	conversation = append(conversation, history...)
	conversation = append(conversation, schema.UserMessage(userContent))
	return conversation
}

// recordUsage writes one usage row per assistant reply in the appended
// messages. Recording is best effort and never fails the turn.
func recordUsage(ctx context.Context, recorder model.UsageRecorder, query string, agent model.AgentName, modelName string, appended []*schema.Message) {
	if recorder == nil {
		return
	}
	for _, msg := range appended {
		if msg.Role != schema.Assistant {
			continue
		}
		rec, ok := model.NewUsageRecord(query, string(agent), string(agent), modelName, msg)
		if !ok {
			continue
		}
		if err := recorder.Record(ctx, rec); err != nil {
			logx.Warn().Err(err).Str("agent", string(agent)).Msg("usage record failed")
		}
	}
}
