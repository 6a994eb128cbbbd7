package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// AgentName is the closed set of terminal handlers the supervisor routes to.
type AgentName string

const (
	AgentTextToSQL  AgentName = "TEXT_TO_SQL"
	AgentRAG        AgentName = "RAG"
	AgentMisleading AgentName = "MISLEADING"
)

// HistorySentinel bypasses routing entirely and reports the checkpointed
// history instead. It is a debug escape hatch, not a fourth category.
const HistorySentinel = "get_history"

// ParseAgentName normalises a label emitted by the supervisor model.
// The second return value is false for labels outside the closed set;
// callers route those to the fallback agent rather than failing the turn.
func ParseAgentName(s string) (AgentName, bool) {
	switch AgentName(strings.ToUpper(strings.TrimSpace(s))) {
	case AgentTextToSQL:
		return AgentTextToSQL, true
	case AgentRAG:
		return AgentRAG, true
	case AgentMisleading:
		return AgentMisleading, true
	default:
		return "", false
	}
}

// SupervisorDecision is the structured output of the routing model call.
type SupervisorDecision struct {
	AgentName AgentName `json:"agent_name"`

	// HistoryOnly is set when the turn was the history sentinel and no
	// handler should run.
	HistoryOnly bool `json:"-"`
}

// AppState stores per-turn state for the supervisor graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers
//     (WithStatePreHandler, WithStatePostHandler, compose.ProcessState),
//     which Eino serializes, so no additional locking is required.
type AppState struct {
	ThreadID  string
	UserQuery string

	// History is the checkpointed message log loaded at turn start and
	// grown by appending; it is never mutated in place.
	History []*schema.Message

	AgentName   AgentName
	AgentOutput string
}

// QueryInput represents one user turn entering the graph.
type QueryInput struct {
	ThreadID string `json:"thread_id"`
	Query    string `json:"query"`
}

// TurnResult is the graph output for one completed turn.
type TurnResult struct {
	AgentName   AgentName         `json:"agent_name"`
	AgentOutput string            `json:"agent_output"`
	Messages    []*schema.Message `json:"messages"`
}
