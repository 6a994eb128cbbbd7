package agents

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/graph/prompts"
	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
)

// MisleadingAgent handles queries outside the showroom and manual domains.
// It redirects the user in a single model call with no tools, so it bypasses
// the tool loop entirely.
type MisleadingAgent struct {
	chatModel einomodel.BaseChatModel
	modelName string
	recorder  model.UsageRecorder
}

func NewMisleadingAgent(chatModel einomodel.BaseChatModel, cfg model.AgentModelConfig, recorder model.UsageRecorder) *MisleadingAgent {
	return &MisleadingAgent{
		chatModel: chatModel,
		modelName: cfg.Model,
		recorder:  recorder,
	}
}

func (a *MisleadingAgent) Name() model.AgentName {
	return model.AgentMisleading
}

func (a *MisleadingAgent) Run(ctx context.Context, query string, history []*schema.Message) (*schema.Message, error) {
	system, err := prompts.RenderMisleadingSystem(ctx)
	if err != nil {
		return nil, errx.WrapAgent(string(model.AgentMisleading), err)
	}

	conversation := seedConversation(system, history, prompts.RenderMisleadingUser(query))

	reply, err := a.chatModel.Generate(ctx, conversation)
	if err != nil {
		return nil, errx.WrapAgent(string(model.AgentMisleading), err)
	}
	recordUsage(ctx, a.recorder, query, model.AgentMisleading, a.modelName, []*schema.Message{reply})
	return reply, nil
}
