package toolloop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
)

// scriptedModel replays a fixed sequence of replies.
type scriptedModel struct {
	replies []*schema.Message
	calls   int
}

func (m *scriptedModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if m.calls >= len(m.replies) {
		return nil, fmt.Errorf("scripted model exhausted after %d calls", m.calls)
	}
	reply := m.replies[m.calls]
	m.calls++
	return reply, nil
}

func (m *scriptedModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

type echoInput struct {
	Text string `json:"text"`
}

func echoTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "echo",
			Desc: "echoes the input",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"text": {Type: "string", Required: true},
			}),
		},
		func(ctx context.Context, in *echoInput) (string, error) {
			return "echo: " + in.Text, nil
		},
	)
}

func failingTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "boom",
			Desc: "always fails",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"text": {Type: "string"},
			}),
		},
		func(ctx context.Context, in *echoInput) (string, error) {
			return "", errors.New("kaboom")
		},
	)
}

func toolCallMessage(name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{
		{Function: schema.FunctionCall{Name: name, Arguments: args}},
	})
}

func newLoop(t *testing.T, m einomodel.BaseChatModel, maxIterations int, ts ...tool.BaseTool) *Loop {
	t.Helper()
	loop, err := New(context.Background(), "test_agent", m, ts, maxIterations, nil)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return loop
}

func TestRunPlainReply(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("direct answer", nil),
	}}
	loop := newLoop(t, m, 5, echoTool())

	appended, final, err := loop.Run(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if final.Content != "direct answer" {
		t.Errorf("final: got %q", final.Content)
	}
	if len(appended) != 1 {
		t.Errorf("appended: got %d messages, want 1", len(appended))
	}
}

func TestRunToolCallThenReply(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolCallMessage("echo", `{"text":"hi"}`),
		schema.AssistantMessage("done", nil),
	}}
	loop := newLoop(t, m, 5, echoTool())

	appended, final, err := loop.Run(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if final.Content != "done" {
		t.Errorf("final: got %q", final.Content)
	}
	if len(appended) != 3 {
		t.Fatalf("appended: got %d messages, want 3", len(appended))
	}

	request, result := appended[0], appended[1]
	if result.Role != schema.Tool {
		t.Fatalf("second message role: got %v, want tool", result.Role)
	}
	if result.Content != "echo: hi" {
		t.Errorf("tool result: got %q", result.Content)
	}
	// The provider omitted the call id; the loop must synthesize one and
	// pair the result with it.
	if request.ToolCalls[0].ID == "" {
		t.Error("tool call id was not backfilled")
	}
	if result.ToolCallID != request.ToolCalls[0].ID {
		t.Errorf("tool result id %q does not match call id %q", result.ToolCallID, request.ToolCalls[0].ID)
	}
}

func TestRunToolErrorBecomesResult(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolCallMessage("boom", `{"text":"x"}`),
		schema.AssistantMessage("recovered", nil),
	}}
	loop := newLoop(t, m, 5, failingTool())

	appended, final, err := loop.Run(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if final.Content != "recovered" {
		t.Errorf("final: got %q", final.Content)
	}
	result := appended[1]
	if !strings.HasPrefix(result.Content, "Error:") {
		t.Errorf("tool failure not surfaced as error content: %q", result.Content)
	}
}

func TestRunUnknownToolBecomesResult(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolCallMessage("no_such_tool", `{}`),
		schema.AssistantMessage("ok", nil),
	}}
	loop := newLoop(t, m, 5, echoTool())

	appended, _, err := loop.Run(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result := appended[1]
	if result.Role != schema.Tool {
		t.Fatalf("unknown tool result role: got %v", result.Role)
	}
	if !strings.Contains(result.Content, "unknown tool") {
		t.Errorf("unknown tool result: got %q", result.Content)
	}
}

func TestRunIterationBound(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{
		toolCallMessage("echo", `{"text":"1"}`),
		toolCallMessage("echo", `{"text":"2"}`),
		toolCallMessage("echo", `{"text":"3"}`),
	}}
	loop := newLoop(t, m, 2, echoTool())

	_, _, err := loop.Run(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if !errors.Is(err, errx.ErrToolLoopExceeded) {
		t.Fatalf("got %v, want ErrToolLoopExceeded", err)
	}
	if m.calls != 2 {
		t.Errorf("model calls: got %d, want 2", m.calls)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	m := &scriptedModel{}
	if _, err := New(context.Background(), "a", m, []tool.BaseTool{echoTool(), echoTool()}, 5, nil); err == nil {
		t.Error("expected error for duplicate tool names")
	}
	if _, err := New(context.Background(), "a", m, []tool.BaseTool{echoTool()}, 0, nil); err == nil {
		t.Error("expected error for non-positive iteration bound")
	}
}
