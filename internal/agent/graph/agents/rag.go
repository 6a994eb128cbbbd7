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

// RAGAgent answers vehicle manual questions by searching the embedded
// document collection and grounding its reply on the retrieved passages.
type RAGAgent struct {
	loop      *toolloop.Loop
	modelName string
	recorder  model.UsageRecorder
}

func NewRAGAgent(ctx context.Context, chatModel einomodel.BaseChatModel, store *tools.DocumentStore, cfg model.AgentModelConfig, maxIterations int, recorder model.UsageRecorder) (*RAGAgent, error) {
	loop, err := toolloop.New(ctx, string(model.AgentRAG), chatModel, store.Tools(), maxIterations, nil)
	if err != nil {
		return nil, errx.WrapInit("rag agent", err)
	}
	return &RAGAgent{
		loop:      loop,
		modelName: cfg.Model,
		recorder:  recorder,
	}, nil
}

func (a *RAGAgent) Name() model.AgentName {
	return model.AgentRAG
}

func (a *RAGAgent) Run(ctx context.Context, query string, history []*schema.Message) (*schema.Message, error) {
	system, err := prompts.RenderRAGSystem(ctx)
	if err != nil {
		return nil, errx.WrapAgent(string(model.AgentRAG), err)
	}

	conversation := seedConversation(system, history, prompts.RenderRAGUser(query))

	appended, final, err := a.loop.Run(ctx, conversation)
	recordUsage(ctx, a.recorder, query, model.AgentRAG, a.modelName, appended)
	if err != nil {
		return nil, err
	}

	logx.Debug().Int("messages", len(appended)).Msg("rag turn complete")
	return final, nil
}
