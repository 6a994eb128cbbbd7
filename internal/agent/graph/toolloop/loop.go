// Package toolloop drives the model/tool conversation cycle shared by every
// agent: call the model, execute any requested tools in order, feed results
// back, and repeat until the model answers in plain text or the iteration
// bound trips.
package toolloop

import (
	"context"
	"encoding/json"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

// OnModelReply is invoked after each successful model call, letting callers
// record token usage per node without the loop knowing about persistence.
type OnModelReply func(ctx context.Context, reply *schema.Message)

// Loop executes the tool conversation for one agent. The chat model must
// already have the agent's tools bound; the registry here resolves tool calls
// back to their implementations by name.
type Loop struct {
	agent         string
	chatModel     einomodel.BaseChatModel
	tools         map[string]tool.InvokableTool
	maxIterations int
	onReply       OnModelReply
}

// New builds a loop over the given tools. Tool names are resolved once at
// construction; duplicate names are rejected since dispatch is by name.
func New(ctx context.Context, agent string, chatModel einomodel.BaseChatModel, tools []tool.BaseTool, maxIterations int, onReply OnModelReply) (*Loop, error) {
	registry := make(map[string]tool.InvokableTool, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			return nil, fmt.Errorf("tool %q is not invokable", info.Name)
		}
		if _, dup := registry[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", info.Name)
		}
		registry[info.Name] = inv
	}
	if maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", maxIterations)
	}
	return &Loop{
		agent:         agent,
		chatModel:     chatModel,
		tools:         registry,
		maxIterations: maxIterations,
		onReply:       onReply,
	}, nil
}

// Run advances the conversation until the model produces a reply with no
// tool calls. It returns the messages appended during this run and the final
// assistant reply. Each tool call is answered with exactly one tool result
// before the next model call, preserving request/result pairing even when a
// tool fails. Hitting the iteration bound returns ErrToolLoopExceeded.
func (l *Loop) Run(ctx context.Context, history []*schema.Message) ([]*schema.Message, *schema.Message, error) {
	conversation := make([]*schema.Message, len(history))
	copy(conversation, history)

	var appended []*schema.Message

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		reply, err := l.chatModel.Generate(ctx, conversation)
		if err != nil {
			return appended, nil, errx.WrapAgent(l.agent, err)
		}
		if l.onReply != nil {
			l.onReply(ctx, reply)
		}

		ensureToolCallIDs(reply, iteration)
		conversation = append(conversation, reply)
		appended = append(appended, reply)

		if len(reply.ToolCalls) == 0 {
			return appended, reply, nil
		}

		logx.Debug().
			Str("agent", l.agent).
			Int("iteration", iteration).
			Int("tool_calls", len(reply.ToolCalls)).
			Msg("executing tool calls")

		for _, call := range reply.ToolCalls {
			result := l.execute(ctx, call)
			conversation = append(conversation, result)
			appended = append(appended, result)
		}
	}

	return appended, nil, errx.WrapAgent(l.agent, errx.ErrToolLoopExceeded)
}

// execute runs a single tool call and always returns a tool result message.
// Failures become content for the model to recover from, never loop errors.
func (l *Loop) execute(ctx context.Context, call schema.ToolCall) *schema.Message {
	inv, ok := l.tools[call.Function.Name]
	if !ok {
		payload, _ := json.Marshal(map[string]string{
			"error": fmt.Sprintf("unknown tool %q", call.Function.Name),
		})
		logx.Warn().Str("agent", l.agent).Str("tool", call.Function.Name).Msg("model requested unknown tool")
		return schema.ToolMessage(string(payload), call.ID)
	}

	out, err := inv.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		logx.Warn().Err(err).Str("agent", l.agent).Str("tool", call.Function.Name).Msg("tool execution failed")
		return schema.ToolMessage(fmt.Sprintf("Error: %v", err), call.ID)
	}
	return schema.ToolMessage(out, call.ID)
}

// ensureToolCallIDs backfills call ids for providers that omit them, so tool
// results can still be paired with their requests.
func ensureToolCallIDs(reply *schema.Message, iteration int) {
	for i := range reply.ToolCalls {
		if reply.ToolCalls[i].ID == "" {
			reply.ToolCalls[i].ID = fmt.Sprintf("call_%d_%d", iteration, i)
		}
	}
}
