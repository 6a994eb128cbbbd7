// Package nodes builds the graph nodes of the supervisor workflow: the
// routing node, the three handler nodes, and the history report node.
package nodes

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"google.golang.org/genai"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
)

// ChatModels bundles the per-role chat models. All of them share one genai
// client; they differ in generation settings, bound tools, and, for the
// supervisor, the constrained response schema.
type ChatModels struct {
	Supervisor einomodel.BaseChatModel
	TextToSQL  einomodel.BaseChatModel
	RAG        einomodel.BaseChatModel
	Misleading einomodel.BaseChatModel
	Checker    einomodel.BaseChatModel
}

// NewChatModels constructs the chat models. sqlTools and ragTools are bound
// to their respective agent models so tool calls surface in the responses.
func NewChatModels(ctx context.Context, client *genai.Client, supervisorCfg model.SupervisorModelConfig, agentCfg model.AgentModelConfig, sqlTools, ragTools []*schema.ToolInfo) (*ChatModels, error) {
	supervisor, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       supervisorCfg.Model,
		MaxTokens:   intPtr(supervisorCfg.MaxTokens),
		Temperature: float32Ptr(supervisorCfg.Temperature),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
		ResponseSchema: supervisorResponseSchema(),
	})
	if err != nil {
		return nil, errx.WrapInit("supervisor model", err)
	}

	textToSQL, err := newAgentModel(ctx, client, agentCfg)
	if err != nil {
		return nil, errx.WrapInit("text_to_sql model", err)
	}
	if err := textToSQL.BindTools(sqlTools); err != nil {
		return nil, errx.WrapInit("text_to_sql model", err)
	}

	rag, err := newAgentModel(ctx, client, agentCfg)
	if err != nil {
		return nil, errx.WrapInit("rag model", err)
	}
	if err := rag.BindTools(ragTools); err != nil {
		return nil, errx.WrapInit("rag model", err)
	}

	misleading, err := newAgentModel(ctx, client, agentCfg)
	if err != nil {
		return nil, errx.WrapInit("misleading model", err)
	}

	checker, err := newAgentModel(ctx, client, agentCfg)
	if err != nil {
		return nil, errx.WrapInit("query checker model", err)
	}

	return &ChatModels{
		Supervisor: supervisor,
		TextToSQL:  textToSQL,
		RAG:        rag,
		Misleading: misleading,
		Checker:    checker,
	}, nil
}

func newAgentModel(ctx context.Context, client *genai.Client, cfg model.AgentModelConfig) (*gemini.ChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		MaxTokens:   intPtr(cfg.MaxTokens),
		Temperature: float32Ptr(cfg.Temperature),
	})
}

// supervisorResponseSchema constrains the routing model to a one-field JSON
// object whose agent_name is one of the closed label set. Constrained output
// plus strict decoding keeps routing deterministic.
func supervisorResponseSchema() *openapi3.Schema {
	return &openapi3.Schema{
		Type:     openapi3.TypeObject,
		Required: []string{"agent_name"},
		Properties: openapi3.Schemas{
			"agent_name": &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: openapi3.TypeString,
					Enum: []any{
						string(model.AgentTextToSQL),
						string(model.AgentRAG),
						string(model.AgentMisleading),
					},
					Description: "The agent that should handle the user's query.",
				},
			},
		},
	}
}

func intPtr(v int) *int {
	return &v
}

func float32Ptr(v float32) *float32 {
	return &v
}
